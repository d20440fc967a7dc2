package signal

import "unsafe"

func unsafeSliceImpl(p *byte, n int) []byte {
	if n == 0 {
		return nil
	}
	return unsafe.Slice(p, n)
}
