package periphio

import (
	"bytes"
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestReadReg_RepeatedStartTx(t *testing.T) {
	rec := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x77, W: []byte{0xD0}, R: []byte{0x55, 0x02}},
		},
	}
	b := Wrap(rec)

	got := make([]byte, 2)
	if err := b.ReadReg(0x77, 0xD0, got); err != nil {
		t.Fatalf("ReadReg: %v", err)
	}
	if !bytes.Equal(got, []byte{0x55, 0x02}) {
		t.Fatalf("got=% X", got)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("playback not drained: %v", err)
	}
}

func TestWriteReg(t *testing.T) {
	rec := &i2ctest.Record{}
	b := Wrap(rec)
	if err := b.WriteReg(0x77, 0xF4, 0x2E); err != nil {
		t.Fatalf("WriteReg: %v", err)
	}
	if len(rec.Ops) != 1 {
		t.Fatalf("ops=%d want 1", len(rec.Ops))
	}
	op := rec.Ops[0]
	if op.Addr != 0x77 || !bytes.Equal(op.W, []byte{0xF4, 0x2E}) || len(op.R) != 0 {
		t.Fatalf("op=%+v", op)
	}
}

func TestWrappedCloseIsNoop(t *testing.T) {
	b := Wrap(&i2ctest.Record{})
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
