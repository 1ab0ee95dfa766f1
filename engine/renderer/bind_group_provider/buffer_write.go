package bind_group_provider

// BufferWrite is one queue write into the buffer at Binding on Provider, starting at Offset.
// Data is copied into the queue when the write is issued, so the caller may reuse it afterwards.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
