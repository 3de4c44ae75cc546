package overlay

import (
	"sync"

	"gocv.io/x/gocv"
)

// JPEGBuffer keeps the most recent annotated frame as JPEG bytes.
type JPEGBuffer struct {
	mu   sync.RWMutex
	data []byte
	seq  uint64
}

// NewJPEGBuffer returns an empty buffer.
func NewJPEGBuffer() *JPEGBuffer {
	return &JPEGBuffer{}
}

// ShowFrame encodes mat. Encoding failures keep the previous frame.
func (b *JPEGBuffer) ShowFrame(mat *gocv.Mat) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	b.mu.Lock()
	b.data = data
	b.seq++
	b.mu.Unlock()
}

// Latest returns the newest JPEG and its sequence number; seq is 0 until
// the first frame arrives.
func (b *JPEGBuffer) Latest() ([]byte, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data, b.seq
}
