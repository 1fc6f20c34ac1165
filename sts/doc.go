// Package sts implements the binary bus protocol spoken by Feetech STS/SCS-series
// smart servo actuators (ST3215 and friends) over a half-duplex multi-drop serial line.
//
// Up to 254 actuators (ids 0–253) share a single serial line with no flow control,
// no collision detection and no message boundaries. The package provides the full
// host-side protocol engine:
//
//   - Frame codec: byte-exact encoding of instruction frames and decoding of status
//     frames, including header resynchronization inside a continuous byte stream
//     that may carry noise, truncated frames, or several devices' replies
//     back-to-back.
//   - Timeout model: receive budgets derived purely from the baud rate and the
//     expected frame length, since the transport exposes no framing of its own.
//   - Single-target transactions: ping, register read, register write.
//   - Group batch protocol: Sync Write (fan-out, no replies) and Sync Read
//     (fan-out request, fan-in replies) addressing many devices in one bus
//     transaction.
//
// # Wire Format
//
// Both directions use the same layout:
//
//	Instruction: 0xFF 0xFF | ID | LEN | INSTR | PARAM[LEN-2] | CHK
//	Status:      0xFF 0xFF | ID | LEN | ERR   | PARAM[LEN-2] | CHK
//
// LEN is the parameter count plus two. CHK is the bitwise complement of the
// modulo-256 sum of every byte between the header and the checksum itself.
//
// # Concurrency
//
// The bus is strictly half-duplex: the transmit and the following receive of one
// transaction are always sequential. A single coarse lock inside [Bus] guarantees
// that only one transaction (single-target or group) is in flight at a time, no
// matter how many application goroutines call in. The engine never retries and
// never sleeps; a timed-out or corrupt transaction is reported exactly once and
// retry policy is left to the caller.
//
// Register semantics (what an address means) belong to higher layers such as the
// servo package; this package treats addresses as opaque offsets.
package sts
