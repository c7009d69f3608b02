package qiw

import (
	"context"
	"strings"

	"github.com/partpulse/partpulse/internal/api/metrics"
)

// Outcome summarises one detector run.
type Outcome struct {
	Channel   string
	Skipped   bool
	Incidents []Incident
	Recorded  []string
	Blocking  []Incident
}

// ExitCode is 1 when a recorded incident blocks, 0 otherwise.
func (o Outcome) ExitCode() int {
	if len(o.Blocking) > 0 {
		return 1
	}
	return 0
}

// Run executes d for its channel. Disabled channels are skipped, incidents
// already seen within the similarity window are dropped, and the rest are
// recorded. A detector or store failure is logged and never blocks.
func Run(ctx context.Context, d Detector, env *Env, store *Store) Outcome {
	ch := d.Channel()
	out := Outcome{Channel: ch}
	log := env.Log.With().Str("channel", ch).Logger()

	if !env.Config.ChannelEnabled(ch) {
		log.Info().Msg("channel disabled, skipping detection")
		out.Skipped = true
		return out
	}

	found, err := d.Detect(ctx, env)
	if err != nil {
		log.Error().Err(err).Msg("detector failed")
		return out
	}

	for _, inc := range found {
		similar, err := store.HasSimilar(inc, DefaultSimilarWindow)
		if err != nil {
			log.Error().Err(err).Msg("incident history unreadable")
			return out
		}
		if similar {
			log.Debug().Str("title", inc.Title).Msg("similar incident already recorded")
			continue
		}
		out.Incidents = append(out.Incidents, inc)
		log.Warn().Str("severity", string(inc.Severity)).Str("title", inc.Title).Msg("incident detected")
	}
	if len(out.Incidents) == 0 {
		log.Info().Msg("no anomalies detected")
		return out
	}

	ids, err := store.Record(out.Incidents...)
	if err != nil {
		log.Error().Err(err).Msg("recording incidents failed")
		return out
	}
	out.Recorded = ids

	for _, inc := range out.Incidents {
		metrics.QIWIncidentsTotal.WithLabelValues(ch, string(inc.Severity)).Inc()
		if env.Config.Blocks(ch, inc.Severity) {
			out.Blocking = append(out.Blocking, inc)
		}
	}
	if len(out.Blocking) > 0 {
		for _, inc := range out.Blocking {
			log.Error().Str("severity", strings.ToUpper(string(inc.Severity))).Str("title", inc.Title).Msg("blocking incident")
		}
	}
	return out
}
