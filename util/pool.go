package util

import "sync"

// SessionBufSize is the fixed read buffer carried by every connection
// session.  One read fills at most this many bytes.
const SessionBufSize = 1024

// BufPool provides reusable session read buffers, so that connection
// churn does not allocate a fresh buffer per accepted peer.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, SessionBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf clears buf and returns it to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	clear(*buf)
	BufPool.Put(buf)
}
