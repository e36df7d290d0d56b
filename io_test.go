package splitnet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	sn "github.com/sharnoff/splitnet"
	"github.com/sharnoff/splitnet/costfuncs"
)

func TestSaveLoad(t *testing.T) {
	net, ds := activeNet(t, 40, 0.25)
	net.StopTargetGradient(true)
	dir := filepath.Join(t.TempDir(), "net")

	require.NoError(t, net.Save(dir, false))
	assert.Error(t, net.Save(dir, false))
	require.NoError(t, net.Save(dir, true))

	loaded, err := sn.Load(dir, costfuncs.NLL())
	require.NoError(t, err)

	assert.Equal(t, net.NumBlocks(), loaded.NumBlocks())
	assert.Equal(t, net.Penalty(), loaded.Penalty())
	assert.Equal(t, net.NumSamples(), loaded.NumSamples())

	want, err := net.Predict(ds.X)
	require.NoError(t, err)
	got, err := loaded.Predict(ds.X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	for l := 0; l < net.NumConstraints(); l++ {
		if diff := cmp.Diff(net.Split(l).RawMatrix().Data, loaded.Split(l).RawMatrix().Data); diff != "" {
			t.Errorf("split %d mismatch (-want +got):\n%s", l, diff)
		}
		assert.True(t, mat.Equal(net.Multiplier(l), loaded.Multiplier(l)))
	}

	// the weight penalty is restored along with everything else
	before, err := net.Lagrangian(context.Background(), ds.All())
	require.NoError(t, err)
	after, err := loaded.Lagrangian(context.Background(), ds.All())
	require.NoError(t, err)
	assert.Greater(t, before.Reg, 0.0)
	assert.InDelta(t, before.Reg, after.Reg, 1e-12)
	assert.InDelta(t, before.Value, after.Value, 1e-12)
}

func TestLoadUnseeded(t *testing.T) {
	net := threeBlocks(t, 41)
	dir := t.TempDir()

	require.NoError(t, net.Save(dir, true))

	loaded, err := sn.Load(dir, costfuncs.NLL())
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.NumSamples())

	_, err = os.Stat(filepath.Join(dir, "split_0.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadErrors(t *testing.T) {
	net := threeBlocks(t, 42)
	dir := t.TempDir()
	require.NoError(t, net.Save(dir, true))

	_, err := sn.Load(dir, costfuncs.MSE())
	assert.Error(t, err)

	_, err = sn.Load(dir, nil)
	assert.Error(t, err)

	_, err = sn.Load(filepath.Join(dir, "missing"), costfuncs.NLL())
	assert.Error(t, err)

	assert.Equal(t, sn.ErrNetNotFinalized, new(sn.Network).Save(dir, true))
}

func TestLoadRowMismatch(t *testing.T) {
	net, _ := activeNet(t, 43, 0.1)
	dir := t.TempDir()
	require.NoError(t, net.Save(dir, true))

	// block 0 has 5 outputs, but the split variables have 12 rows
	bad := []byte(`{"rows":1,"cols":5,"data":[0,0,0,0,0]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mult_0.json"), bad, 0600))

	_, err := sn.Load(dir, costfuncs.NLL())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Multipliers 0")
}
