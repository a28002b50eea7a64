package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/spate/internal/model"
)

func TestFormatHostPorts(t *testing.T) {
	tests := []struct {
		name  string
		ports []model.PortSpec
		want  string
	}{
		{
			name:  "empty returns dash",
			ports: nil,
			want:  "-",
		},
		{
			name: "single port",
			ports: []model.PortSpec{
				{ContainerPort: 8000, HostPort: 8000, Protocol: "tcp"},
			},
			want: "8000",
		},
		{
			name: "multiple ports sorted numerically",
			ports: []model.PortSpec{
				{ContainerPort: 5432, HostPort: 15432, Protocol: "tcp"},
				{ContainerPort: 3000, HostPort: 3000, Protocol: "tcp"},
			},
			want: "3000,15432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHostPorts(tt.ports))
		})
	}
}
