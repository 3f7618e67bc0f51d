/*
Oe implements the order execution pipeline.

# Module
  - state machine: validates lifecycle transitions for one order
  - worker: drives a single job attempt through routing, building and
    settlement via the Router capability
  - service: admission side (pending emit + enqueue) and the retry policy
    applied when a worker attempt fails

# Source
 1. jobs from the bus queue (memory) or the store durable queue (postgres)
 2. quotes and settlement results from the router module

# Produce
  - status updates pushed to the sink registry after every accepted
    transition, in strict per-order state order
  - terminal acknowledgment back to the queue (confirmed or failed)
*/
package oe
