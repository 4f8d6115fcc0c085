package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/robinvdvleuten/ratebook/output"
)

// TimingCollector collects timings into a tree.
type TimingCollector struct {
	mu      sync.Mutex
	roots   []*timerNode
	current *timerNode
	styles  *output.Styles
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	children []*timerNode
	parent   *timerNode
}

// CollectorOption configures a TimingCollector.
type CollectorOption func(*TimingCollector)

// WithStyles renders reports with terminal styling.
func WithStyles(styles *output.Styles) CollectorOption {
	return func(c *TimingCollector) {
		c.styles = styles
	}
}

// NewTimingCollector creates a new timing collector.
func NewTimingCollector(opts ...CollectorOption) *TimingCollector {
	c := &TimingCollector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins timing an operation, nested under the currently running timer
// if there is one.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{
		name:   name,
		start:  time.Now(),
		parent: c.current,
	}

	if c.current == nil {
		c.roots = append(c.roots, node)
	} else {
		c.current.children = append(c.current.children, node)
	}
	c.current = node

	return &timingTimer{collector: c, node: node}
}

// Report writes the timing trees to w.
func (c *TimingCollector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, root := range c.roots {
		formatTimingTree(w, root, c.styles)
	}
}

// Entries returns all finished timings in depth-first order.
func (c *TimingCollector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entries []Entry
	var walk func(n *timerNode, depth int)
	walk = func(n *timerNode, depth int) {
		if !n.end.IsZero() {
			entries = append(entries, Entry{Name: n.name, Depth: depth, Duration: n.end.Sub(n.start)})
		}
		for _, child := range n.children {
			walk(child, depth+1)
		}
	}
	for _, root := range c.roots {
		walk(root, 0)
	}
	return entries
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

// End stops the timer and makes its parent current again.
func (t *timingTimer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	t.node.end = time.Now()
	if t.collector.current == t.node {
		t.collector.current = t.node.parent
	}
}

// Child creates a nested timer. Unlike Start it does not change which timer
// is current.
func (t *timingTimer) Child(name string) Timer {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	node := &timerNode{
		name:   name,
		start:  time.Now(),
		parent: t.node,
	}
	t.node.children = append(t.node.children, node)

	return &timingTimer{collector: t.collector, node: node}
}
