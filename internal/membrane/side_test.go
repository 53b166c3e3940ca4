package membrane

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide(t *testing.T) {
	assert.Equal(t, Dry, Wet.Flip())
	assert.Equal(t, Wet, Dry.Flip())
	assert.Equal(t, Wet, Wet.Flip().Flip())
	assert.Equal(t, "wet", Wet.String())
	assert.Equal(t, "dry", Dry.String())
	assert.Equal(t, "side(7)", Side(7).String())

	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"wet", Wet, false},
		{"dry", Dry, false},
		{"damp", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsPrimitive(t *testing.T) {
	var nilObj *stub
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"undefined", Undefined, true},
		{"bool", false, true},
		{"number", 1.0, true},
		{"string", "s", true},
		{"slice", []any{1}, true},
		{"typed nil object", nilObj, true},
		{"object", &stub{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrimitive(tt.v))
		})
	}
}

func TestPropertyDescriptorKinds(t *testing.T) {
	data := &PropertyDescriptor{Value: 1}
	assert.False(t, data.IsAccessor())
	assert.True(t, data.Frozen())

	data.Writable = true
	assert.False(t, data.Frozen())

	acc := &PropertyDescriptor{Get: &stub{}}
	assert.True(t, acc.IsAccessor())
	assert.False(t, acc.Frozen())
}
