package device

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
)

func candidate(name string, deviceType core1_0.PhysicalDeviceType, suitable bool) Candidate {
	return Candidate{
		Info:     PhysicalDeviceInfo{Name: name, Type: deviceType},
		Suitable: suitable,
	}
}

func TestChooseCandidate(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		want       int
	}{
		{
			name: "discrete wins over earlier integrated",
			candidates: []Candidate{
				candidate("igpu", core1_0.PhysicalDeviceTypeIntegratedGPU, true),
				candidate("dgpu", core1_0.PhysicalDeviceTypeDiscreteGPU, true),
			},
			want: 1,
		},
		{
			name: "first discrete of several",
			candidates: []Candidate{
				candidate("dgpu0", core1_0.PhysicalDeviceTypeDiscreteGPU, true),
				candidate("dgpu1", core1_0.PhysicalDeviceTypeDiscreteGPU, true),
			},
			want: 0,
		},
		{
			name: "unsuitable discrete is skipped",
			candidates: []Candidate{
				candidate("dgpu", core1_0.PhysicalDeviceTypeDiscreteGPU, false),
				candidate("cpu", core1_0.PhysicalDeviceTypeCPU, true),
				candidate("igpu", core1_0.PhysicalDeviceTypeIntegratedGPU, true),
			},
			want: 1,
		},
		{
			name: "falls back to the first suitable",
			candidates: []Candidate{
				candidate("virtual", core1_0.PhysicalDeviceTypeVirtualGPU, false),
				candidate("igpu", core1_0.PhysicalDeviceTypeIntegratedGPU, true),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, err := ChooseCandidate(tt.candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.want, index)
		})
	}
}

func TestChooseCandidateErrors(t *testing.T) {
	_, err := ChooseCandidate(nil)
	require.Error(t, err)

	_, err = ChooseCandidate([]Candidate{candidate("dgpu", core1_0.PhysicalDeviceTypeDiscreteGPU, false)})
	require.Error(t, err)
}

func TestChooseQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		graphics []bool
		present  []bool
		want     QueueFamilies
		ok       bool
	}{
		{name: "single family", graphics: []bool{true}, present: []bool{true}, want: QueueFamilies{0, 0}, ok: true},
		{name: "shared family preferred over earlier split", graphics: []bool{true, false, true}, present: []bool{false, true, true}, want: QueueFamilies{2, 2}, ok: true},
		{name: "split families", graphics: []bool{true, false}, present: []bool{false, true}, want: QueueFamilies{0, 1}, ok: true},
		{name: "no present", graphics: []bool{true, true}, present: []bool{false, false}, ok: false},
		{name: "no graphics", graphics: []bool{false}, present: []bool{true}, ok: false},
		{name: "no families", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			families, ok := ChooseQueueFamilies(tt.graphics, tt.present)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, families)
			}
		})
	}
}

func TestQueueFamiliesUnique(t *testing.T) {
	assert.Equal(t, []int{1}, QueueFamilies{Graphics: 1, Present: 1}.Unique())
	assert.True(t, QueueFamilies{Graphics: 1, Present: 1}.Shared())
	assert.Equal(t, []int{0, 2}, QueueFamilies{Graphics: 0, Present: 2}.Unique())
}

func TestMissingNames(t *testing.T) {
	available := map[string]struct{}{"VK_LAYER_KHRONOS_validation": {}}
	assert.Empty(t, MissingNames(available, ValidationLayers))

	missing := MissingNames(map[string]int{}, []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, missing)
}

func TestSeverityLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, SeverityLevel(ext_debug_utils.SeverityError))
	assert.Equal(t, slog.LevelWarn, SeverityLevel(ext_debug_utils.SeverityWarning))
	assert.Equal(t, slog.LevelInfo, SeverityLevel(ext_debug_utils.SeverityInfo))
	assert.Equal(t, slog.LevelDebug, SeverityLevel(ext_debug_utils.SeverityVerbose))
}
