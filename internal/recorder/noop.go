package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRotation(_ *RotationEvent) error   { return nil }
func (n *NoopRecorder) RecordDecision(_ *DecisionEvent) error   { return nil }
func (n *NoopRecorder) RecordExecution(_ *ExecutionEvent) error { return nil }
func (n *NoopRecorder) RecordAccount(_ *AccountEvent) error     { return nil }
func (n *NoopRecorder) Close() error                            { return nil }
