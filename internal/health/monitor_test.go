package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"paygate/internal/model"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		def      model.ProcessorHealth
		fall     model.ProcessorHealth
		expected model.ProcessorType
	}{
		{
			name:     "both healthy, default faster",
			def:      model.ProcessorHealth{MinResponseTime: 40},
			fall:     model.ProcessorHealth{MinResponseTime: 60},
			expected: model.ProcessorDefault,
		},
		{
			name:     "both healthy, default materially slower",
			def:      model.ProcessorHealth{MinResponseTime: 80},
			fall:     model.ProcessorHealth{MinResponseTime: 60},
			expected: model.ProcessorFallback,
		},
		{
			name:     "both healthy, default slower but within multiplier",
			def:      model.ProcessorHealth{MinResponseTime: 70},
			fall:     model.ProcessorHealth{MinResponseTime: 60},
			expected: model.ProcessorDefault,
		},
		{
			name:     "default failing",
			def:      model.ProcessorHealth{Failing: true, MinResponseTime: 10},
			fall:     model.ProcessorHealth{MinResponseTime: 500},
			expected: model.ProcessorFallback,
		},
		{
			name:     "fallback failing",
			def:      model.ProcessorHealth{MinResponseTime: 500},
			fall:     model.ProcessorHealth{Failing: true, MinResponseTime: 10},
			expected: model.ProcessorDefault,
		},
		{
			name:     "both failing",
			def:      model.ProcessorHealth{Failing: true},
			fall:     model.ProcessorHealth{Failing: true},
			expected: model.ProcessorNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.def, tt.fall, 1.2))
		})
	}
}

type proberStub struct {
	def  model.ProcessorHealth
	fall model.ProcessorHealth
}

func (p proberStub) CheckHealth(_ context.Context, processor model.ProcessorType) model.ProcessorHealth {
	if processor == model.ProcessorDefault {
		return p.def
	}
	return p.fall
}

type leadershipStub bool

func (l leadershipStub) IsLeader(context.Context) bool { return bool(l) }

type publisherSpy struct {
	published []model.ProcessorType
}

func (p *publisherSpy) Publish(_ context.Context, processor model.ProcessorType) error {
	p.published = append(p.published, processor)
	return nil
}

func TestMonitorFollowerNeverProbes(t *testing.T) {
	spy := &publisherSpy{}
	m := NewMonitor(proberStub{}, leadershipStub(false), spy, 0, 1.2)

	m.RunOnce(context.Background())

	assert.Empty(t, spy.published)
}

func TestMonitorLeaderPublishesDecision(t *testing.T) {
	spy := &publisherSpy{}
	prober := proberStub{
		def:  model.ProcessorHealth{MinResponseTime: 80},
		fall: model.ProcessorHealth{MinResponseTime: 60},
	}
	m := NewMonitor(prober, leadershipStub(true), spy, 0, 1.2)

	m.RunOnce(context.Background())

	assert.Equal(t, []model.ProcessorType{model.ProcessorFallback}, spy.published)
}

func TestMonitorDegradesToNoneWhenBothFail(t *testing.T) {
	spy := &publisherSpy{}
	prober := proberStub{
		def:  model.ProcessorHealth{Failing: true},
		fall: model.ProcessorHealth{Failing: true},
	}
	m := NewMonitor(prober, leadershipStub(true), spy, 0, 1.2)

	m.RunOnce(context.Background())

	assert.Equal(t, []model.ProcessorType{model.ProcessorNone}, spy.published)
}
