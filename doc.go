// Package asio provides asynchronous Berkeley-sockets I/O on top of a
// readiness-based event demultiplexer (a poll(2)-style multiplexer, not
// epoll/kqueue/io_uring). Application code composes non-blocking network
// operations as Senders that complete when the kernel signals the
// underlying descriptor is ready, then invokes the corresponding syscall
// eagerly and reports the outcome to a Receiver.
//
// A Triggers owns one multiplexer and vends Dialogs (a socket handle plus a
// weak reference back to the executor) via Push/Emplace. Verb functions
// (Accept, Connect, Sendmsg, Recvmsg) take a Dialog and return a
// PollSender; driving Triggers.WaitFor in a loop dispatches completions.
// Bind, Listen, Getsockname, Getpeername, GetsockoptInt, SetsockoptInt and
// Shutdown are synchronous and operate directly on a *Socket.
package asio
