package searchspace

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/BlindDock/internal/domain/structure"
	"github.com/turtacn/BlindDock/pkg/errors"
)

func mustStructure(t *testing.T, id string, atoms ...structure.Atom) *structure.Structure {
	t.Helper()
	s, err := structure.New(id, structure.FormatPDB, atoms, nil)
	require.NoError(t, err)
	return s
}

func at(chain string, resSeq int, x, y, z float64) structure.Atom {
	return structure.Atom{ChainID: chain, ResSeq: resSeq, Coord: structure.Vec3{x, y, z}}
}

func TestBuild_BlindWorkedExample(t *testing.T) {
	target := mustStructure(t, "rec",
		at("A", 1, 0, 0, 0),
		at("A", 2, 40, 20, 30),
		at("A", 3, 10, 10, 10),
	)

	ss, err := NewBuilder(DefaultPadding()).Build(target, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ModeBlind, ss.Mode)
	assert.Equal(t, structure.Vec3{20, 10, 15}, ss.Center)
	assert.Equal(t, structure.Vec3{56, 36, 46}, ss.Extents)
	assert.Equal(t, 8.0, ss.Margin)
}

func TestBuild_BlindContainsTargetWithMargin(t *testing.T) {
	target := mustStructure(t, "rec",
		at("A", 1, -3.5, 2, 7),
		at("A", 2, 12, -8, 1),
		at("B", 3, 4, 30, -6),
		at("B", 4, 0, 0, 0),
	)
	pad := DefaultPadding()
	ss, err := NewBuilder(pad).Build(target, nil, nil)
	require.NoError(t, err)

	box := target.BoundingBox()
	grown := structure.AABB{
		Min: box.Min.Sub(structure.Vec3{pad.Margin, pad.Margin, pad.Margin}),
		Max: box.Max.Add(structure.Vec3{pad.Margin, pad.Margin, pad.Margin}),
	}
	bounds := ss.Bounds()
	for i := 0; i < 3; i++ {
		assert.LessOrEqual(t, bounds.Min[i], grown.Min[i]+1e-9)
		assert.GreaterOrEqual(t, bounds.Max[i], grown.Max[i]-1e-9)
		assert.GreaterOrEqual(t, ss.Extents[i], pad.MinExtent)
	}
}

func TestBuild_MinExtentFloor(t *testing.T) {
	target := mustStructure(t, "tiny",
		at("A", 1, 0, 0, 0),
		at("A", 1, 1, 0, 0),
		at("A", 1, 0, 1, 0),
	)
	pad := DefaultPadding()
	pad.MinExtent = 25

	ss, err := NewBuilder(pad).Build(target, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, structure.Vec3{25, 25, 25}, ss.Extents)
}

func TestBuild_LigandRaisesFloor(t *testing.T) {
	target := mustStructure(t, "rec", at("A", 1, 0, 0, 0), at("A", 1, 1, 1, 1), at("A", 1, 2, 2, 2))
	ligand := mustStructure(t, "lig", at("", 0, 0, 0, 0), at("", 0, 30, 0, 0))

	ss, err := NewBuilder(DefaultPadding()).Build(target, ligand, nil)
	require.NoError(t, err)
	assert.Equal(t, structure.Vec3{30, 30, 30}, ss.Extents)
}

func TestBuild_TooFewAtoms(t *testing.T) {
	target := mustStructure(t, "two", at("A", 1, 0, 0, 0), at("A", 1, 1, 1, 1))

	_, err := NewBuilder(DefaultPadding()).Build(target, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidStructure))

	_, err = NewBuilder(DefaultPadding()).Build(nil, nil, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidStructure))
}

func TestBuild_RepeatableBitForBit(t *testing.T) {
	target := mustStructure(t, "rec",
		at("A", 1, 0.1, -7.3, 1e-3),
		at("A", 2, 33.333333333, 0.7, -12.25),
		at("B", 3, -4.05, 18.9, 6.6),
		at("B", 4, 1.0/3, 2.0/3, 5.0/7),
	)
	ligand := mustStructure(t, "lig", at("", 0, 0.3, 0.3, 0.3), at("", 0, 3.7, -1.1, 2.9))
	center := structure.Vec3{1.1, 2.2, 3.3}
	hints := []*Hint{
		nil,
		{Residues: []ResidueRef{{Chain: "A", ResSeq: 1}, {Chain: "B", ResSeq: 4}}},
		{Center: &center},
	}
	b := NewBuilder(DefaultPadding())

	bits := func(ss SearchSpace) [7]uint64 {
		var out [7]uint64
		for i := 0; i < 3; i++ {
			out[i] = math.Float64bits(ss.Center[i])
			out[3+i] = math.Float64bits(ss.Extents[i])
		}
		out[6] = math.Float64bits(ss.Margin)
		return out
	}

	for _, hint := range hints {
		first, err := b.Build(target, ligand, hint)
		require.NoError(t, err)
		want := bits(first)

		var wg sync.WaitGroup
		got := make([][7]uint64, 64)
		for i := range got {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ss, err := b.Build(target, ligand, hint)
				if err == nil {
					got[i] = bits(ss)
				}
			}(i)
		}
		wg.Wait()
		for i := range got {
			assert.Equal(t, want, got[i], "build %d differs", i)
		}
	}
}

func TestBuild_NonFiniteSearchSpaceRejected(t *testing.T) {
	huge := math.MaxFloat64 / 1.5

	t.Run("target extents overflow", func(t *testing.T) {
		target := mustStructure(t, "rec",
			at("A", 1, -huge, 0, 0),
			at("A", 2, huge, 1, 1),
			at("A", 3, 0, 2, 2),
		)
		_, err := NewBuilder(DefaultPadding()).Build(target, nil, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidStructure))
	})

	t.Run("ligand floor overflows", func(t *testing.T) {
		target := mustStructure(t, "rec", at("A", 1, 0, 0, 0), at("A", 1, 1, 1, 1), at("A", 1, 2, 2, 2))
		ligand := mustStructure(t, "lig", at("", 0, -huge, 0, 0), at("", 0, huge, 0, 0))
		_, err := NewBuilder(DefaultPadding()).Build(target, ligand, nil)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidStructure))
	})

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := structure.New("rec", structure.FormatPDB,
			[]structure.Atom{at("A", 1, 0, 0, 0), at("A", 2, v, 0, 0), at("A", 3, 1, 1, 1)}, nil)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidStructure), "coordinate %v", v)
	}
}

func TestBuild_HintedResiduesClamped(t *testing.T) {
	target := mustStructure(t, "rec",
		at("A", 10, 0, 0, 0),
		at("A", 10, 2, 2, 2),
		at("A", 11, 40, 0, 0),
		at("B", 10, 100, 100, 100),
		at("A", 50, -60, -60, -60),
	)

	hint := &Hint{Residues: []ResidueRef{{Chain: "A", ResSeq: 10}, {Chain: "A", ResSeq: 11}}}
	ss, err := NewBuilder(DefaultPadding()).Build(target, nil, hint)
	require.NoError(t, err)

	assert.Equal(t, ModeHinted, ss.Mode)
	assert.Equal(t, structure.Vec3{20, 1, 1}, ss.Center)
	// x: 40+8 clamps to 28; y,z: 2+8 lifts to 20.
	assert.Equal(t, structure.Vec3{28, 20, 20}, ss.Extents)
	assert.Equal(t, 4.0, ss.Margin)
}

func TestBuild_HintedCenterOnly(t *testing.T) {
	target := mustStructure(t, "rec", at("A", 1, 0, 0, 0), at("A", 1, 1, 1, 1), at("A", 1, 2, 2, 2))
	center := structure.Vec3{5, 6, 7}
	size := structure.Vec3{18, 22, 24}

	ss, err := NewBuilder(DefaultPadding()).Build(target, nil, &Hint{Center: &center, Size: &size})
	require.NoError(t, err)
	assert.Equal(t, center, ss.Center)
	assert.Equal(t, size, ss.Extents)

	ss, err = NewBuilder(DefaultPadding()).Build(target, nil, &Hint{Center: &center})
	require.NoError(t, err)
	assert.Equal(t, structure.Vec3{28, 28, 28}, ss.Extents)

	bad := structure.Vec3{0, -1, 5}
	_, err = NewBuilder(DefaultPadding()).Build(target, nil, &Hint{Center: &center, Size: &bad})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestBuild_HintResiduesMissing(t *testing.T) {
	target := mustStructure(t, "rec", at("A", 1, 0, 0, 0), at("A", 1, 1, 1, 1), at("A", 1, 2, 2, 2))
	_, err := NewBuilder(DefaultPadding()).Build(target, nil, &Hint{Residues: []ResidueRef{{ResSeq: 999}}})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestParseResidueRef(t *testing.T) {
	cases := map[string]ResidueRef{
		"A:123": {Chain: "A", ResSeq: 123},
		"B45":   {Chain: "B", ResSeq: 45},
		"77":    {ResSeq: 77},
		" C:-2": {Chain: "C", ResSeq: -2},
	}
	for in, want := range cases {
		got, err := ParseResidueRef(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "A:", "ABC"} {
		_, err := ParseResidueRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestSearchSpace_Volume(t *testing.T) {
	ss := SearchSpace{Extents: structure.Vec3{2, 3, 4}}
	assert.Equal(t, 24.0, ss.Volume())
	assert.Contains(t, ss.String(), "size=")
}

//Personal.AI order the ending
