package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSample() Sample {
	return Sample{
		Speed:    150,
		RPM:      6000,
		Gear:     4,
		Throttle: 0.8,
		Brake:    0.1,
		Steering: -0.3,
	}
}

func TestSampleValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Sample)
		field  string
	}{
		{name: "valid", mutate: func(s *Sample) {}},
		{name: "rpm negative", mutate: func(s *Sample) { s.RPM = -1 }, field: "rpm"},
		{name: "rpm too high", mutate: func(s *Sample) { s.RPM = 25000 }, field: "rpm"},
		{name: "speed negative", mutate: func(s *Sample) { s.Speed = -0.1 }, field: "speed"},
		{name: "speed too high", mutate: func(s *Sample) { s.Speed = 501 }, field: "speed"},
		{name: "gear below reverse", mutate: func(s *Sample) { s.Gear = -2 }, field: "gear"},
		{name: "gear too high", mutate: func(s *Sample) { s.Gear = 9 }, field: "gear"},
		{name: "throttle above one", mutate: func(s *Sample) { s.Throttle = 1.01 }, field: "throttle"},
		{name: "throttle negative", mutate: func(s *Sample) { s.Throttle = -0.5 }, field: "throttle"},
		{name: "brake above one", mutate: func(s *Sample) { s.Brake = 2 }, field: "brake"},
		{name: "steering below minus one", mutate: func(s *Sample) { s.Steering = -1.5 }, field: "steering"},
		{name: "steering above one", mutate: func(s *Sample) { s.Steering = 1.5 }, field: "steering"},
		{name: "rpm nan", mutate: func(s *Sample) { s.RPM = float32(math.NaN()) }, field: "rpm"},
		{name: "rpm infinite", mutate: func(s *Sample) { s.RPM = float32(math.Inf(1)) }, field: "rpm"},
		{name: "speed nan", mutate: func(s *Sample) { s.Speed = float32(math.NaN()) }, field: "speed"},
		{name: "throttle nan", mutate: func(s *Sample) { s.Throttle = float32(math.NaN()) }, field: "throttle"},
		{name: "brake nan", mutate: func(s *Sample) { s.Brake = float32(math.NaN()) }, field: "brake"},
		{name: "steering negative infinite", mutate: func(s *Sample) { s.Steering = float32(math.Inf(-1)) }, field: "steering"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sample := validSample()
			test.mutate(&sample)

			err := sample.Validate()

			if test.field == "" {
				assert.NoError(t, err)
				return
			}

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, test.field, validationErr.Field)
		})
	}
}

func TestSampleChannel(t *testing.T) {
	sample := validSample()

	for _, name := range Channels {
		_, ok := sample.Channel(name)
		assert.True(t, ok, name)
	}

	_, ok := sample.Channel("fuel")
	assert.False(t, ok)
}
