package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"device-push-backend/internal/apperr"
	"device-push-backend/internal/model"
	"device-push-backend/internal/store/storetest"
)

func newRegistry() (*Registry, *storetest.Memory) {
	mem := storetest.NewMemory()
	return New(mem, zap.NewNop()), mem
}

func TestRegistry_UpsertIsIdempotent(t *testing.T) {
	r, mem := newRegistry()
	ctx := context.Background()

	id, err := r.Upsert(ctx, RegisterInput{DeviceID: "d1", PushToken: "tok-1", Platform: model.PlatformIOS, DeviceName: "Old"})
	require.NoError(t, err)
	assert.Equal(t, "d1", id)

	require.NoError(t, r.Deactivate(ctx, "d1"))

	_, err = r.Upsert(ctx, RegisterInput{DeviceID: "d1", PushToken: "tok-2", Platform: model.PlatformAndroid, DeviceName: "New"})
	require.NoError(t, err)

	assert.Equal(t, 1, mem.DeviceCount())
	device, err := mem.FindDevice(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", device.PushToken)
	assert.Equal(t, "New", device.DeviceName)
	assert.True(t, device.IsActive)
	assert.Equal(t, model.PlatformIOS, device.Platform, "platform is fixed at creation")
}

func TestRegistry_UpsertConcurrentSameID(t *testing.T) {
	r, mem := newRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Upsert(context.Background(), RegisterInput{DeviceID: "same", PushToken: "t", Platform: model.PlatformAndroid, DeviceName: "n"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, mem.DeviceCount())
}

func TestRegistry_UpsertValidation(t *testing.T) {
	r, mem := newRegistry()

	testCases := []struct {
		name string
		in   RegisterInput
		msg  string
	}{
		{"missing id", RegisterInput{PushToken: "t", Platform: model.PlatformIOS, DeviceName: "n"}, "Device ID is required"},
		{"missing token", RegisterInput{DeviceID: "d", Platform: model.PlatformIOS, DeviceName: "n"}, "Push token is required"},
		{"bad platform", RegisterInput{DeviceID: "d", PushToken: "t", Platform: "web", DeviceName: "n"}, "Platform must be ios or android"},
		{"missing name", RegisterInput{DeviceID: "d", PushToken: "t", Platform: model.PlatformAndroid, DeviceName: "  "}, "Device name is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Upsert(context.Background(), tc.in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.EqualError(t, err, tc.msg)
		})
	}
	assert.Equal(t, 0, mem.DeviceCount())
}

func TestRegistry_UpsertStorageError(t *testing.T) {
	r, mem := newRegistry()
	mem.UpsertErr = errors.New("db down")

	_, err := r.Upsert(context.Background(), RegisterInput{DeviceID: "d", PushToken: "t", Platform: model.PlatformIOS, DeviceName: "n"})

	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestRegistry_CheckRegistration(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	reg, err := r.CheckRegistration(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, Registration{}, reg)

	_, err = r.Upsert(ctx, RegisterInput{DeviceID: "d1", PushToken: "t", Platform: model.PlatformIOS, DeviceName: "n"})
	require.NoError(t, err)

	reg, err = r.CheckRegistration(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, Registration{IsRegistered: true, IsActive: true}, reg)

	require.NoError(t, r.Deactivate(ctx, "d1"))
	reg, err = r.CheckRegistration(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, Registration{IsRegistered: true, IsActive: false}, reg)
}

func TestRegistry_CheckRegistrationStorageError(t *testing.T) {
	r, mem := newRegistry()
	mem.FindErr = errors.New("timeout")

	_, err := r.CheckRegistration(context.Background(), "d1")
	assert.ErrorIs(t, err, apperr.ErrStorage)
}

func TestRegistry_DeactivateUnknownIsNoop(t *testing.T) {
	r, mem := newRegistry()

	assert.NoError(t, r.Deactivate(context.Background(), "ghost"))
	assert.Equal(t, 0, mem.DeviceCount())
}

func TestRegistry_ListNewestFirst(t *testing.T) {
	r, _ := newRegistry()
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		_, err := r.Upsert(ctx, RegisterInput{DeviceID: id, PushToken: "t", Platform: model.PlatformAndroid, DeviceName: id})
		require.NoError(t, err)
	}
	// Re-registering does not move a device in the listing.
	_, err := r.Upsert(ctx, RegisterInput{DeviceID: "first", PushToken: "t2", Platform: model.PlatformAndroid, DeviceName: "first"})
	require.NoError(t, err)

	devices, err := r.List(ctx)
	require.NoError(t, err)

	ids := make([]string, len(devices))
	for i, d := range devices {
		ids[i] = d.DeviceID
	}
	assert.Equal(t, []string{"third", "second", "first"}, ids)
}

func TestRegistry_ListEmpty(t *testing.T) {
	r, _ := newRegistry()

	devices, err := r.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}
