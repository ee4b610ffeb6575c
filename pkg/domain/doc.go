/*
Package domain contains the core value types shared by the Tabula facade, the
engine gateway and the engine adapters.

It is kept free of I/O. Everything here is either a plain value that crosses
the engine boundary (Snapshot, Call, Envelope) or a descriptor that the core
serializes without interpreting (ChartSpec, Aggregation, Chart).

# Key Entities

  - Snapshot: the complete serialized state of a table or dashboard.
  - Call: one engine operation with its text-encoded arguments.
  - Envelope: the transport wrapper used by process and HTTP engines.
  - ChartSpec / Aggregation: chart descriptors passed to chart renderers.
  - DashboardView: the read-only projection of a dashboard snapshot.
*/
package domain
