package builtin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nilan/object"
)

func TestNamesMatchesTable(t *testing.T) {
	table := New(&bytes.Buffer{})
	require.Equal(t, len(Names), len(table))
	for i, name := range Names {
		assert.Equal(t, name, table[i].Name)
	}
}

func TestLen(t *testing.T) {
	table := New(&bytes.Buffer{})
	lenFn := findByName(t, table, "len")

	result := lenFn.Fn(&object.String{Value: "nilan"})
	intObj, ok := result.(*object.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(5), intObj.Value)

	result = lenFn.Fn(&object.Array{Elements: []object.Object{&object.Integer{Value: 1}}})
	intObj, ok = result.(*object.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(1), intObj.Value)

	result = lenFn.Fn(&object.Integer{Value: 1})
	_, isErr := result.(*object.Error)
	assert.True(t, isErr)
}

func TestPutsWritesToConfiguredWriter(t *testing.T) {
	var buf bytes.Buffer
	table := New(&buf)
	putsFn := findByName(t, table, "puts")

	result := putsFn.Fn(&object.Integer{Value: 42})
	assert.Equal(t, object.NULL, result)
	assert.Equal(t, "42\n", buf.String())
}

func TestArrayPushMutatesArgumentAndReturnsNewLength(t *testing.T) {
	table := New(&bytes.Buffer{})
	pushFn := findByName(t, table, "array_push")

	original := &object.Array{Elements: []object.Object{&object.Integer{Value: 1}}}
	result := pushFn.Fn(original, &object.Integer{Value: 2})

	intObj, ok := result.(*object.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(2), intObj.Value)
	require.Len(t, original.Elements, 2, "array_push must mutate its argument in place")
	assert.Equal(t, int64(2), original.Elements[1].(*object.Integer).Value)
}

func TestArrayPopReturnsLastElement(t *testing.T) {
	table := New(&bytes.Buffer{})
	popFn := findByName(t, table, "array_pop")

	arr := &object.Array{Elements: []object.Object{&object.Integer{Value: 1}, &object.Integer{Value: 2}}}
	result := popFn.Fn(arr)
	intObj, ok := result.(*object.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(2), intObj.Value)

	empty := &object.Array{}
	assert.Equal(t, object.NULL, popFn.Fn(empty))
}

func TestStrSplit(t *testing.T) {
	table := New(&bytes.Buffer{})
	splitFn := findByName(t, table, "str_split")

	result := splitFn.Fn(&object.String{Value: "a,b,c"}, &object.String{Value: ","})
	arr, ok := result.(*object.Array)
	require.True(t, ok)
	require.Len(t, arr.Elements, 3)
	assert.Equal(t, "b", arr.Elements[1].(*object.String).Value)
}

func TestIntConvertsStrings(t *testing.T) {
	table := New(&bytes.Buffer{})
	intFn := findByName(t, table, "int")

	result := intFn.Fn(&object.String{Value: "42"})
	intObj, ok := result.(*object.Integer)
	require.True(t, ok)
	assert.Equal(t, int64(42), intObj.Value)

	result = intFn.Fn(&object.String{Value: "not a number"})
	_, isErr := result.(*object.Error)
	assert.True(t, isErr)
}

func findByName(t *testing.T, table []*object.Builtin, name string) *object.Builtin {
	t.Helper()
	for _, b := range table {
		if b.Name == name {
			return b
		}
	}
	t.Fatalf("no builtin named %q", name)
	return nil
}
