// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOTel_Validate(t *testing.T) {
	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if no exporter uses otlp", func(t *testing.T) {
			cfg := OTel{
				Trace: Trace{Exporter: Exporter{Type: NoneExporterType}},
			}
			assert.NoError(t, cfg.Validate())
		})
	})

	t.Run("will return a MissingOTLPTargetError", func(t *testing.T) {
		t.Run("if an otlp exporter has no target", func(t *testing.T) {
			cfg := OTel{
				Metric: Metric{Exporter: Exporter{Type: OTLPExporterType, OTLP: OTLP{Type: OTLPGRPC}}},
			}

			err := cfg.Validate()

			var mte MissingOTLPTargetError
			if !assert.ErrorAs(t, err, &mte) {
				return
			}
			assert.Equal(t, "metric", mte.Signal)
		})
	})
}
