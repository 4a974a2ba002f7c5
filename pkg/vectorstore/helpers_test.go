package vectorstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"exoplanet-classifier-be/pkg/embedding"
	"exoplanet-classifier-be/pkg/exo"
)

// featureEmbedder parses the canonical text back into its five numbers.
type featureEmbedder struct {
	calls atomic.Int32
}

func (e *featureEmbedder) ProviderName() string { return "features" }

func (e *featureEmbedder) EmbedWithProgress(ctx context.Context, texts []string, progress embedding.ProgressFunc) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var p, d, dep, r, temp float32
		if _, err := fmt.Sscanf(t, "period=%f, duration=%f, depth=%f, radius=%f, temp=%f", &p, &d, &dep, &r, &temp); err != nil {
			return nil, err
		}
		out[i] = []float32{p, d, dep, r, temp}
		if progress != nil {
			progress(i+1, len(texts))
		}
	}
	return out, nil
}

func row(id string, disp exo.Disposition, period, duration, depth, prad, teq float64) exo.Row {
	return exo.Row{
		ID:                     id,
		Type:                   exo.MissionKOI,
		Disposition:            disp.Ptr(),
		Period:                 exo.Float(period),
		Duration:               exo.Float(duration),
		Depth:                  exo.Float(depth),
		PlanetaryRadius:        exo.Float(prad),
		EquilibriumTemperature: exo.Float(teq),
	}
}
