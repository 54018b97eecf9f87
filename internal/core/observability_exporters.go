package core

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exports engine metrics through a Prometheus registerer.
// It is safe to share between fits evaluated on different goroutines.
type PrometheusRecorder struct {
	lookups      *prometheus.CounterVec
	durations    *prometheus.HistogramVec
	instructions *prometheus.CounterVec
	skipped      prometheus.Counter
}

// NewPrometheusRecorder registers the fitcore collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	rec := &PrometheusRecorder{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitcore",
			Name:      "attribute_lookups_total",
			Help:      "Attribute reads by cache result.",
		}, []string{"result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitcore",
			Name:      "attribute_calculation_seconds",
			Help:      "Time spent computing attribute values.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"status"}),
		instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitcore",
			Name:      "instructions_total",
			Help:      "Bus instructions dispatched by kind.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fitcore",
			Name:      "contributors_skipped_total",
			Help:      "Modifier contributions skipped because of errors.",
		}),
	}
	for _, c := range []prometheus.Collector{rec.lookups, rec.durations, rec.instructions, rec.skipped} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register fitcore metrics: %w", err)
		}
	}
	return rec, nil
}

// CacheLookup implements MetricsRecorder.
func (r *PrometheusRecorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.lookups.WithLabelValues(result).Inc()
}

// Calculated implements MetricsRecorder.
func (r *PrometheusRecorder) Calculated(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.durations.WithLabelValues(status).Observe(duration.Seconds())
}

// Instruction implements MetricsRecorder.
func (r *PrometheusRecorder) Instruction(kind InstructionKind) {
	r.instructions.WithLabelValues(kind.String()).Inc()
}

// ContributorSkipped implements MetricsRecorder.
func (r *PrometheusRecorder) ContributorSkipped() {
	r.skipped.Inc()
}

// JSONInstructionEntry is the serialized form of one instruction.
type JSONInstructionEntry struct {
	Kind    string    `json:"kind"`
	Holder  string    `json:"holder,omitempty"`
	TypeID  int32     `json:"type_id,omitempty"`
	States  []string  `json:"states,omitempty"`
	Effects []int32   `json:"effects,omitempty"`
	Attr    int32     `json:"attr,omitempty"`
	Source  string    `json:"source,omitempty"`
	At      time.Time `json:"at"`
}

// JSONInstructionTracer is a subscriber writing every instruction as a JSON
// line and retaining the entries for inspection.
type JSONInstructionTracer struct {
	mu      sync.Mutex
	entries []JSONInstructionEntry
	enc     *json.Encoder
}

// NewJSONInstructionTracer constructs a tracer writing to w. A nil writer
// only retains entries.
func NewJSONInstructionTracer(w io.Writer) *JSONInstructionTracer {
	var enc *json.Encoder
	if w != nil {
		enc = json.NewEncoder(w)
	}
	return &JSONInstructionTracer{enc: enc}
}

// Entries returns a copy of all recorded instructions.
func (t *JSONInstructionTracer) Entries() []JSONInstructionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONInstructionEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Notify implements Subscriber.
func (t *JSONInstructionTracer) Notify(in Instruction) error {
	entry := JSONInstructionEntry{
		Kind: in.Kind.String(),
		Attr: int32(in.Attr),
		At:   time.Now().UTC(),
	}
	if in.Holder != nil {
		entry.Holder = in.Holder.id
		entry.TypeID = int32(in.Holder.typeID)
	}
	for _, s := range in.States {
		entry.States = append(entry.States, s.String())
	}
	for _, id := range in.Effects {
		entry.Effects = append(entry.Effects, int32(id))
	}
	if in.Source != nil {
		entry.Source = in.Source.Name()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.enc != nil {
		if err := t.enc.Encode(entry); err != nil {
			return fmt.Errorf("trace instruction: %w", err)
		}
	}
	return nil
}
