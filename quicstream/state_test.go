package quicstream

import (
	"testing"

	"github.com/kcenon/netquic/quicwire"
)

func TestStreamSendLifecycle(t *testing.T) {
	s := New(4)
	s.MaxSendOffset = 1 << 20

	if s.SendState != SendReady {
		t.Fatalf("initial SendState = %v, want Ready", s.SendState)
	}

	if _, err := s.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() = %v, want nil", err)
	}
	if s.SendState != SendSending {
		t.Fatalf("SendState after Write = %v, want Send", s.SendState)
	}

	if err := s.CloseSend(); err != nil {
		t.Fatalf("CloseSend() = %v, want nil", err)
	}

	frame, ok := s.NextFrame(1024)
	if !ok {
		t.Fatal("NextFrame() = false, want a frame carrying \"hello\" with FIN")
	}
	if string(frame.Data) != "hello" || !frame.Fin {
		t.Fatalf("frame = %+v, want Data=hello Fin=true", frame)
	}
	if s.SendState != SendDataSent {
		t.Fatalf("SendState after sending FIN = %v, want DataSent", s.SendState)
	}

	if _, err := s.Write([]byte("more")); err == nil {
		t.Fatal("Write() after FIN sent = nil error, want ErrStreamClosedForWrite")
	}

	s.OnAck(0, 5)
	if s.SendState != SendDataRecvd {
		t.Fatalf("SendState after full ACK = %v, want DataRecvd", s.SendState)
	}
}

func TestStreamNextFrameRespectsMaxSendOffset(t *testing.T) {
	s := New(0)
	s.MaxSendOffset = 3
	s.Write([]byte("hello"))

	frame, ok := s.NextFrame(1024)
	if !ok {
		t.Fatal("NextFrame() = false, want a frame bounded by MaxSendOffset")
	}
	if string(frame.Data) != "hel" {
		t.Fatalf("frame.Data = %q, want %q", frame.Data, "hel")
	}

	if _, ok := s.NextFrame(1024); ok {
		t.Fatal("NextFrame() produced a second frame while blocked at MaxSendOffset")
	}
}

func TestStreamResetSend(t *testing.T) {
	s := New(0)
	s.MaxSendOffset = 100
	s.Write([]byte("partial"))
	s.NextFrame(3)

	frame, err := s.ResetSend(42)
	if err != nil {
		t.Fatalf("ResetSend() = %v, want nil", err)
	}
	if frame.ErrorCode != 42 || frame.FinalSize != 3 {
		t.Fatalf("frame = %+v, want ErrorCode=42 FinalSize=3", frame)
	}
	if s.SendState != SendResetSent {
		t.Fatalf("SendState = %v, want ResetSent", s.SendState)
	}

	s.OnResetAcked()
	if s.SendState != SendResetRecvd {
		t.Fatalf("SendState after OnResetAcked = %v, want ResetRecvd", s.SendState)
	}
}

func TestStreamRecvInOrder(t *testing.T) {
	s := New(4)
	if err := s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 0, Data: []byte("hello"), Fin: true}); err != nil {
		t.Fatalf("OnStreamFrame() = %v, want nil", err)
	}
	if s.RecvState != RecvDataRecvd {
		t.Fatalf("RecvState = %v, want DataRecvd", s.RecvState)
	}

	buf := make([]byte, 16)
	n, ok := s.Read(buf)
	if !ok || string(buf[:n]) != "hello" {
		t.Fatalf("Read() = %d, %v, %q, want 5 true \"hello\"", n, ok, buf[:n])
	}

	if _, ok := s.Read(buf); ok {
		t.Fatal("Read() returned data after buffer drained")
	}
	if s.RecvState != RecvDataRead {
		t.Fatalf("RecvState after drain = %v, want DataRead", s.RecvState)
	}
}

func TestStreamRecvOutOfOrderReassembly(t *testing.T) {
	s := New(4)

	// Second half arrives first.
	if err := s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 5, Data: []byte("world"), Fin: true}); err != nil {
		t.Fatalf("OnStreamFrame() = %v, want nil", err)
	}
	if s.RecvState != RecvSizeKnown {
		t.Fatalf("RecvState = %v, want SizeKnown before the gap is filled", s.RecvState)
	}

	buf := make([]byte, 16)
	if n, ok := s.Read(buf); ok || n != 0 {
		t.Fatalf("Read() before gap filled = %d, %v, want 0, false", n, ok)
	}

	if err := s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 0, Data: []byte("hello")}); err != nil {
		t.Fatalf("OnStreamFrame() = %v, want nil", err)
	}
	if s.RecvState != RecvDataRecvd {
		t.Fatalf("RecvState after gap filled = %v, want DataRecvd", s.RecvState)
	}

	n, ok := s.Read(buf)
	if !ok || string(buf[:n]) != "helloworld" {
		t.Fatalf("Read() = %q, want \"helloworld\"", buf[:n])
	}
}

func TestStreamRecvDuplicateOverlapIgnored(t *testing.T) {
	s := New(4)
	s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 0, Data: []byte("hello")})
	// Overlapping retransmission.
	s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 2, Data: []byte("llo world"), Fin: true})

	buf := make([]byte, 32)
	n, ok := s.Read(buf)
	if !ok || string(buf[:n]) != "hello world" {
		t.Fatalf("Read() = %q, want \"hello world\"", buf[:n])
	}
}

func TestStreamRecvFinalSizeMismatchRejected(t *testing.T) {
	s := New(4)
	s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 0, Data: []byte("hello"), Fin: true})
	err := s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 5, Data: []byte("!"), Fin: true})
	if err == nil {
		t.Fatal("OnStreamFrame() with conflicting final size = nil, want ErrFinalSizeMismatch")
	}
}

func TestStreamOnResetStream(t *testing.T) {
	s := New(4)
	s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 4, Offset: 0, Data: []byte("partial")})
	s.OnResetStream(&quicwire.ResetStreamFrame{StreamID: 4, ErrorCode: 7, FinalSize: 7})

	if s.RecvState != RecvResetRecvd {
		t.Fatalf("RecvState = %v, want ResetRecvd", s.RecvState)
	}

	if _, ok := s.ReadReset(); !ok {
		t.Fatal("ReadReset() = false, want true")
	}
	if s.RecvState != RecvResetRead {
		t.Fatalf("RecvState after ReadReset = %v, want ResetRead", s.RecvState)
	}
}

func TestStreamClosedRequiresBothMachinesTerminal(t *testing.T) {
	s := New(0)
	s.MaxSendOffset = 10
	s.CloseSend()
	s.NextFrame(1024)
	s.OnAck(0, 0)

	if s.Closed() {
		t.Fatal("Closed() = true with recv side still open")
	}

	s.OnStreamFrame(&quicwire.StreamFrame{StreamID: 0, Offset: 0, Data: nil, Fin: true})
	buf := make([]byte, 1)
	s.Read(buf)

	if !s.Closed() {
		t.Fatal("Closed() = false with both machines terminal")
	}
}
