package netio

import "net"

// applyServerSockOpts tunes an accepted connection the way the original
// implementation's server role does: disable Nagle's algorithm so small
// framed packets go out immediately, and use a short linger so a stuck
// peer cannot delay shutdown.
func applyServerSockOpts(conn *net.TCPConn) {
	_ = conn.SetNoDelay(true)
	_ = conn.SetLinger(int(serverLinger.Seconds()))
}

// applyClientSockOpts tunes a dialed connection. The client role only
// needs the short linger on close; Nagle's algorithm is left at the Go
// default since the client is the receiving side in most sessions.
func applyClientSockOpts(conn *net.TCPConn) {
	_ = conn.SetLinger(int(clientLinger.Seconds()))
}
