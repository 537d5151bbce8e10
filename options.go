package graphics

import "github.com/gogpu/graphics/vertexdomain"

// BatchOption configures a Batch during creation.
//
// Example:
//
//	shared := vertexdomain.NewSet(adapter, vertexdomain.Config{})
//	ui := graphics.NewBatch(adapter, graphics.WithDomains(shared))
//	world := graphics.NewBatch(adapter, graphics.WithDomains(shared),
//	    graphics.WithComparator(graphics.CompareByOrderThenLabel))
type BatchOption func(*batchOptions)

type batchOptions struct {
	compare Comparator
	config  vertexdomain.Config
	domains *vertexdomain.Set
	label   string
}

func defaultOptions() batchOptions {
	return batchOptions{compare: CompareByOrder}
}

// WithComparator sets the sibling order. nil keeps CompareByOrder.
func WithComparator(c Comparator) BatchOption {
	return func(o *batchOptions) {
		if c != nil {
			o.compare = c
		}
	}
}

// WithDomainConfig sets the configuration of domains the batch creates.
// It is ignored when WithDomains supplies a set.
func WithDomainConfig(cfg vertexdomain.Config) BatchOption {
	return func(o *batchOptions) {
		o.config = cfg
	}
}

// WithDomains makes the batch allocate from a shared domain set. The batch
// does not close shared domains.
func WithDomains(s *vertexdomain.Set) BatchOption {
	return func(o *batchOptions) {
		o.domains = s
	}
}

// WithBatchLabel names the batch in logs.
func WithBatchLabel(label string) BatchOption {
	return func(o *batchOptions) {
		o.label = label
	}
}
