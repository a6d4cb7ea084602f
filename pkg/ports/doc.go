/*
Package ports defines the driven and driving ports (interfaces) of the tutor engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various page sources, storage backends and transports.

# Key Interfaces

  - PageLoader: Responsible for loading raw page definitions (e.g., from Loam or Memory).
  - StateStore: Responsible for persisting and loading session snapshots.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - Engine: What transport adapters (HTTP, MCP) drive.
*/
package ports
