/*
Package ports defines the driven ports (interfaces) of Tabula.

These interfaces decouple the table and dashboard handles from the engine that
actually stores and transforms data, from the mechanism that shows rendered
output, and from wherever snapshots are persisted between processes.

# Key Interfaces

  - Engine: the text-in/text-out engine call surface (in-process, subprocess or HTTP).
  - Sink: shows rendered markup inline, writes it to a file or opens it in a browser.
  - SnapshotStore: persists table and dashboard snapshots by session ID.
  - DistributedLocker: serializes access to one session across processes.
*/
package ports
