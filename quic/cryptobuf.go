package quic

// cryptoChunk is one buffered (offset, data) run of CRYPTO-frame bytes
// awaiting reassembly, mirroring quicstream's stream reassembly but
// without a final size or FIN: the CRYPTO stream never closes.
type cryptoChunk struct {
	offset uint64
	data   []byte
}

// cryptoReassembler reorders received CRYPTO frames for one encryption
// level into a contiguous byte stream before handing them to the
// handshake driver, which (per the narrow HandshakeDriver interface) only
// ever sees in-order bytes.
type cryptoReassembler struct {
	chunks []cryptoChunk
	offset uint64
}

// onCryptoFrame records a CRYPTO frame's (offset, data) and returns any
// newly contiguous bytes now available starting at the reassembler's
// current offset.
func (r *cryptoReassembler) onCryptoFrame(offset uint64, data []byte) []byte {
	end := offset + uint64(len(data))
	if end <= r.offset || len(data) == 0 {
		return nil
	}
	if offset < r.offset {
		data = data[r.offset-offset:]
		offset = r.offset
	}
	r.chunks = append(r.chunks, cryptoChunk{offset: offset, data: data})
	return r.drain()
}

func (r *cryptoReassembler) drain() []byte {
	var out []byte
	for {
		advanced := false
		remaining := r.chunks[:0]
		for _, c := range r.chunks {
			if c.offset > r.offset {
				remaining = append(remaining, c)
				continue
			}
			end := c.offset + uint64(len(c.data))
			if end <= r.offset {
				continue
			}
			overlap := r.offset - c.offset
			out = append(out, c.data[overlap:]...)
			r.offset = end
			advanced = true
		}
		r.chunks = remaining
		if !advanced {
			break
		}
	}
	return out
}

// cryptoSendBuf tracks one level's outgoing CRYPTO byte stream: bytes
// queued by the handshake driver, and how much of it has been sent so
// far, so retransmission can resend unacked ranges without re-asking the
// driver for them.
type cryptoSendBuf struct {
	data   []byte
	sent   uint64
	acked  uint64
}

func (b *cryptoSendBuf) enqueue(p []byte) {
	b.data = append(b.data, p...)
}

// nextFrame returns up to maxLen unsent bytes as a CRYPTO frame payload,
// or false if nothing is pending.
func (b *cryptoSendBuf) nextFrame(maxLen int) (offset uint64, payload []byte, ok bool) {
	if b.sent >= uint64(len(b.data)) {
		return 0, nil, false
	}
	n := len(b.data) - int(b.sent)
	if n > maxLen {
		n = maxLen
	}
	if n <= 0 {
		return 0, nil, false
	}
	offset = b.sent
	payload = append([]byte(nil), b.data[b.sent:b.sent+uint64(n)]...)
	b.sent += uint64(n)
	return offset, payload, true
}
