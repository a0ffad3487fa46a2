package sce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scego/device"
)

func testDevice() *device.Device {
	return device.New("test", 1<<20)
}

func TestRunOnDevice_Deterministic(t *testing.T) {
	ctx := context.Background()

	run := func(blockSize int) *Output[float64] {
		out, err := RunOnDevice[float64](ctx, ringConfig(), DeviceConfig{
			Device:      testDevice(),
			BlockSize:   blockSize,
			HostThreads: 1,
		})
		require.NoError(t, err)
		return out
	}

	// With sequential block execution the thread order is the global thread
	// index regardless of geometry, so the layout is identical for any
	// block size.
	first := run(3)
	for _, blockSize := range []int{8, 128} {
		other := run(blockSize)
		require.Equal(t, first.Embedding, other.Embedding)
		require.Equal(t, first.Eq, other.Eq)
	}

	assert.Less(t, first.Eq, 1.0)
	assert.Greater(t, first.Eq, 0.0)
}

func TestRunOnDevice_Float32(t *testing.T) {
	out, err := RunOnDevice[float32](context.Background(), ringConfig(), DeviceConfig{
		Device:      testDevice(),
		BlockSize:   4,
		HostThreads: 1,
	})
	require.NoError(t, err)
	require.Len(t, out.Embedding, 20)
	assert.Less(t, out.Eq, float32(1))
	assert.Greater(t, out.Eq, float32(0))
}

func TestRunOnDevice_Animated(t *testing.T) {
	cfg := ringConfig()
	cfg.MaxIter = 40
	cfg.Animated = true
	cfg.Frames = 8
	cfg.InitialEmbedding = make([]float64, 2*cfg.Nodes)
	for k := range cfg.InitialEmbedding {
		cfg.InitialEmbedding[k] = float64(k) * 0.01
	}

	out, err := RunOnDevice[float64](context.Background(), cfg, DeviceConfig{
		Device:      testDevice(),
		BlockSize:   4,
		HostThreads: 1,
	})
	require.NoError(t, err)
	require.Len(t, out.Frames, 8)
	require.Len(t, out.EqFrames, 8)
	for k, v := range cfg.InitialEmbedding {
		assert.Equal(t, v, out.Frames[0][k])
	}
}

func TestRunOnDevice_PairConvergence(t *testing.T) {
	out, err := RunOnDevice[float64](context.Background(), pairConfig(1), DeviceConfig{
		Device:      testDevice(),
		BlockSize:   1,
		HostThreads: 1,
	})
	require.NoError(t, err)
	require.Len(t, out.EqFrames, len(out.Frames))

	final := dist2(out.Embedding, 0, 1)
	assert.Greater(t, final, 0.0)
	assert.Less(t, final, 4.0)

	require.Equal(t, 1.0, out.EqFrames[0])
	for f := 1; f < len(out.EqFrames); f++ {
		require.Less(t, out.EqFrames[f], out.EqFrames[f-1], "frame %d", f)
	}
	assert.Less(t, out.Eq, out.EqFrames[len(out.EqFrames)-1])
}

func TestRunOnDevice_BadGeometry(t *testing.T) {
	ctx := context.Background()

	for _, blockSize := range []int{0, -1, device.MaxBlockSize + 1} {
		_, err := RunOnDevice[float64](ctx, ringConfig(), DeviceConfig{
			Device:      testDevice(),
			BlockSize:   blockSize,
			HostThreads: 1,
		})
		require.ErrorIs(t, err, device.ErrLaunchFailed)
	}

	_, err := RunOnDevice[float64](ctx, ringConfig(), DeviceConfig{
		Device:      testDevice(),
		BlockSize:   4,
		HostThreads: 0,
	})
	require.ErrorIs(t, err, device.ErrLaunchFailed)
}

func TestRunOnDevice_OutOfMemory(t *testing.T) {
	_, err := RunOnDevice[float64](context.Background(), ringConfig(), DeviceConfig{
		Device:      device.New("tiny", 64),
		BlockSize:   4,
		HostThreads: 1,
	})
	require.ErrorIs(t, err, device.ErrOutOfMemory)
}

func TestRunOnDevice_ReleasesMemory(t *testing.T) {
	dev := testDevice()

	_, err := RunOnDevice[float64](context.Background(), ringConfig(), DeviceConfig{
		Device:      dev,
		BlockSize:   4,
		HostThreads: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), dev.AllocatedBytes())
}
