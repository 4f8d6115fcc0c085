package telemetry

import "io"

// noOpCollector is used when no collector is installed.
type noOpCollector struct{}

func (noOpCollector) Start(name string) Timer { return noOpTimer{} }
func (noOpCollector) Report(w io.Writer)      {}

type noOpTimer struct{}

func (noOpTimer) End()                    {}
func (noOpTimer) Child(name string) Timer { return noOpTimer{} }
