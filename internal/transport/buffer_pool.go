package transport

import "sync"

// mDNS messages are nominally capped at 512 octets but RFC 6762 §17 permits
// larger "jumbo" packets; 9000 covers the common jumbo-frame MTU.
const maxPacketSize = 9000

var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, maxPacketSize)
		return &buf
	},
}

// GetBuffer returns a pooled receive buffer. Callers must return it via
// PutBuffer once done (typically deferred immediately after Get).
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer zeroes and returns a buffer to the pool. The caller must not use
// the buffer again after this call.
func PutBuffer(bufPtr *[]byte) {
	buf := *bufPtr
	for i := range buf {
		buf[i] = 0
	}
	bufferPool.Put(bufPtr)
}
