package common

// BatchOp is one recorded write of a batch; Value is nil for deletions.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// OpBatch records writes and hands them to apply on Write. Backends supply apply as a single
// atomic transaction.
type OpBatch struct {
	ops    []BatchOp
	closed bool
	apply  func(ops []BatchOp, sync bool) error
}

func NewOpBatch(apply func(ops []BatchOp, sync bool) error) *OpBatch {
	return &OpBatch{apply: apply}
}

func (b *OpBatch) Set(key, value []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := ValidateKv(key, value); err != nil {
		return err
	}
	b.ops = append(b.ops, BatchOp{Key: key, Value: value})
	return nil
}

func (b *OpBatch) Delete(key []byte) error {
	if b.closed {
		return ErrBatchClosed
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	b.ops = append(b.ops, BatchOp{Key: key, Delete: true})
	return nil
}

func (b *OpBatch) write(sync bool) error {
	if b.closed {
		return ErrBatchClosed
	}
	b.closed = true
	return b.apply(b.ops, sync)
}

func (b *OpBatch) Write() error {
	return b.write(false)
}

func (b *OpBatch) WriteSync() error {
	return b.write(true)
}

func (b *OpBatch) Close() error {
	b.closed = true
	b.ops = nil
	return nil
}

func (b *OpBatch) Len() int {
	return len(b.ops)
}
