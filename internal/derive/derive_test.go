package derive

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

type models struct {
	base    *orm.Base
	user    *orm.Mapper
	address *orm.Mapper
}

func newModels() models {
	base := orm.NewBase()
	user := base.MustDefine("User", orm.MustTable("users",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("name", orm.String{}),
		orm.NewColumn("fullname", orm.String{}),
		orm.NewColumn("nickname", orm.String{}),
		orm.NewColumn("created", orm.DateTime{}),
		orm.NewColumn("updated", orm.UtcDateTime()),
	))
	address := base.MustDefine("Address", orm.MustTable("addresses",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("email_address", orm.String{}, orm.NotNull()),
		orm.NewColumn("user_id", orm.Integer{}, orm.References("users", "id")),
	))
	return models{base: base, user: user, address: address}
}

func scenarioModel(t *testing.T) orm.Model {
	t.Helper()
	base := orm.NewBase()
	m, err := base.Define("User", orm.MustTable("users",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey(), orm.NotNull()),
		orm.NewColumn("name", orm.Text{}, orm.Nullable()),
		orm.NewColumn("created", orm.DateTime{}, orm.Nullable()),
	))
	require.NoError(t, err)
	return m
}

func TestSchema_UsersScenario(t *testing.T) {
	schema, err := Schema(scenarioModel(t))
	require.NoError(t, err)

	assert.Equal(t, "User", schema.Name())
	fields := schema.Fields()
	require.Len(t, fields, 3)

	assert.Equal(t, validation.Field{Name: "id", Type: validation.Of(validation.KindInteger), Required: true}, fields[0])
	assert.Equal(t, validation.Field{Name: "name", Type: validation.Optional(validation.Of(validation.KindString))}, fields[1])
	assert.Equal(t, validation.Field{Name: "created", Type: validation.Optional(validation.Of(validation.KindDateTime))}, fields[2])
}

func TestSchema_ExcludeName(t *testing.T) {
	schema, err := Schema(scenarioModel(t), Exclude("name"))
	require.NoError(t, err)

	fields := schema.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "id", fields[0].Name)
	assert.True(t, fields[0].Required)
	assert.Equal(t, "created", fields[1].Name)
	assert.False(t, fields[1].Required)

	_, ok := schema.Field("name")
	assert.False(t, ok)

	js, err := schema.JSONSchema()
	require.NoError(t, err)
	assert.NotContains(t, string(js), `"name"`)
}

func TestSchema_ExcludeDoesNotLeak(t *testing.T) {
	model := scenarioModel(t)

	_, err := Schema(model, Exclude("name"))
	require.NoError(t, err)

	schema, err := Schema(model)
	require.NoError(t, err)
	assert.Len(t, schema.Fields(), 3)
}

func TestSchema_ExcludeAccumulatesAndIgnoresUnknown(t *testing.T) {
	schema, err := Schema(scenarioModel(t), Exclude("name"), Exclude("created", "no_such_column"))
	require.NoError(t, err)
	require.Len(t, schema.Fields(), 1)
	assert.Equal(t, "id", schema.Fields()[0].Name)
}

func TestSchema_FieldCountMatchesColumns(t *testing.T) {
	m := newModels()
	table, err := m.base.Metadata().Table("users")
	require.NoError(t, err)

	for _, excluded := range [][]string{nil, {"nickname"}, {"id", "updated"}} {
		schema, err := Schema(m.user, Exclude(excluded...))
		require.NoError(t, err)

		var want []string
		skip := make(map[string]bool)
		for _, name := range excluded {
			skip[name] = true
		}
		for _, col := range table.Columns() {
			if !skip[col.Name] {
				want = append(want, col.Name)
			}
		}

		var got []string
		for _, f := range schema.Fields() {
			got = append(got, f.Name)
		}
		assert.Equal(t, want, got)
	}
}

func TestSchema_Nullability(t *testing.T) {
	m := newModels()
	table, err := m.base.Metadata().Table("addresses")
	require.NoError(t, err)

	schema, err := Schema(m.address)
	require.NoError(t, err)

	for _, col := range table.Columns() {
		f, ok := schema.Field(col.Name)
		require.True(t, ok, col.Name)
		if col.Nullable {
			assert.False(t, f.Required, col.Name)
			assert.True(t, f.Type.Nullable, col.Name)
			assert.Nil(t, f.Default, col.Name)
		} else {
			assert.True(t, f.Required, col.Name)
			assert.False(t, f.Type.Nullable, col.Name)
		}
	}
}

func TestSchema_Decorator(t *testing.T) {
	schema, err := Schema(newModels().user)
	require.NoError(t, err)

	f, ok := schema.Field("updated")
	require.True(t, ok)
	assert.Equal(t, validation.Optional(validation.Of(validation.KindDateTime)), f.Type)
}

// selfNativeDecorator is a decorator that also reports a native type of
// its own. Only the wrapped engine counts.
type selfNativeDecorator struct {
	impl orm.TypeEngine
}

func (selfNativeDecorator) TypeName() string                   { return "Custom" }
func (d selfNativeDecorator) Impl() orm.TypeEngine             { return d.impl }
func (selfNativeDecorator) NativeType() (orm.NativeType, bool) { return orm.NativeString, true }

func TestSchema_TypeResolution(t *testing.T) {
	tests := []struct {
		name     string
		typ      orm.TypeEngine
		typeName string
	}{
		{"unknown engine", orm.NullType{Name: "geometry"}, "geometry"},
		{"decorator over unknown engine", orm.NewTypeDecorator("Shape", orm.NullType{Name: "geometry"}), "Shape"},
		{"decorator over decorator", orm.NewTypeDecorator("Outer", orm.UtcDateTime()), "Outer"},
		{"decorator without fallback", selfNativeDecorator{impl: orm.NullType{}}, "Custom"},
		{"nil decorator", (*orm.TypeDecorator)(nil), "TypeDecorator"},
		{"decorator over nothing", orm.NewTypeDecorator("Empty", nil), "Empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := orm.NewBase()
			model := base.MustDefine("Place", orm.MustTable("places",
				orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
				orm.NewColumn("shape", tt.typ),
			))

			schema, err := Schema(model)
			require.Error(t, err)
			assert.Nil(t, schema)
			assert.True(t, errs.IsTypeResolution(err))

			var terr *TypeResolutionError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, "Place", terr.Model)
			assert.Equal(t, "places", terr.Table)
			assert.Equal(t, "shape", terr.Column)
			assert.Equal(t, tt.typeName, terr.TypeName)
			assert.Contains(t, err.Error(), "places.shape")

			fields, err := Fields(model)
			assert.Nil(t, fields)
			assert.True(t, errs.IsTypeResolution(err))
		})
	}
}

func TestSchema_ExcludedUnresolvableColumn(t *testing.T) {
	base := orm.NewBase()
	model := base.MustDefine("Place", orm.MustTable("places",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("shape", orm.NullType{Name: "geometry"}),
	))

	schema, err := Schema(model, Exclude("shape"))
	require.NoError(t, err)
	assert.Len(t, schema.Fields(), 1)
}

type missingTable struct{}

func (missingTable) ModelName() string       { return "Ghost" }
func (missingTable) TableName() string       { return "ghosts" }
func (missingTable) Metadata() *orm.MetaData { return orm.NewMetaData() }

func TestSchema_TableLookupErrorPropagates(t *testing.T) {
	_, err := Schema(missingTable{})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
	assert.False(t, errs.IsTypeResolution(err))
}

func TestSchema_ConfigPassedThrough(t *testing.T) {
	cfg := validation.Config{FromAttributes: false, AliasGenerator: validation.ToCamel}

	schema, err := Schema(newModels().address, WithConfig(cfg))
	require.NoError(t, err)
	assert.False(t, schema.Config().FromAttributes)
	assert.Equal(t, "emailAddress", schema.Alias("email_address"))

	def, err := Schema(newModels().address)
	require.NoError(t, err)
	assert.True(t, def.Config().FromAttributes)
	assert.Nil(t, def.Config().AliasGenerator)
}

func TestSchema_Idempotent(t *testing.T) {
	model := newModels().user

	first, err := Schema(model)
	require.NoError(t, err)
	second, err := Schema(model)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first.Fields(), second.Fields())
}

func TestSchema_Concurrent(t *testing.T) {
	model := newModels().user
	want, err := Fields(model)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]validation.Field, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fields(model, Exclude("nickname"))
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Len(t, got, len(want)-1)
	}
}

func TestSchema_JSONSchema(t *testing.T) {
	m := newModels()

	user, err := Schema(m.user)
	require.NoError(t, err)
	js, err := user.JSONSchema()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"properties": {
			"id": {"title": "Id", "type": "integer"},
			"name": {"anyOf": [{"type": "string"}, {"type": "null"}], "default": null, "title": "Name"},
			"fullname": {"anyOf": [{"type": "string"}, {"type": "null"}], "default": null, "title": "Fullname"},
			"nickname": {"anyOf": [{"type": "string"}, {"type": "null"}], "default": null, "title": "Nickname"},
			"created": {"anyOf": [{"format": "date-time", "type": "string"}, {"type": "null"}], "default": null, "title": "Created"},
			"updated": {"anyOf": [{"format": "date-time", "type": "string"}, {"type": "null"}], "default": null, "title": "Updated"}
		},
		"required": ["id"],
		"title": "User",
		"type": "object"
	}`, string(js))

	address, err := Schema(m.address)
	require.NoError(t, err)
	js, err = address.JSONSchema()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"properties": {
			"id": {"title": "Id", "type": "integer"},
			"email_address": {"title": "Email Address", "type": "string"},
			"user_id": {"anyOf": [{"type": "integer"}, {"type": "null"}], "default": null, "title": "User Id"}
		},
		"required": ["id", "email_address"],
		"title": "Address",
		"type": "object"
	}`, string(js))

	trimmed, err := Schema(m.address, Exclude("email_address"))
	require.NoError(t, err)
	js, err = trimmed.JSONSchema()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"properties": {
			"id": {"title": "Id", "type": "integer"},
			"user_id": {"anyOf": [{"type": "integer"}, {"type": "null"}], "default": null, "title": "User Id"}
		},
		"required": ["id"],
		"title": "Address",
		"type": "object"
	}`, string(js))
}

type userRecord struct {
	ID       int
	Name     string
	Fullname string
	Nickname string
	Created  time.Time
	Updated  time.Time
	Address  []addressRecord
}

type addressRecord struct {
	ID           int
	EmailAddress string
	UserID       int
}

func TestSchema_RoundTripWithRelationship(t *testing.T) {
	m := newModels()
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	ed := userRecord{
		ID: 1, Name: "ed", Fullname: "Ed Jones", Nickname: "edsnickname",
		Created: now, Updated: now,
		Address: []addressRecord{
			{ID: 1, EmailAddress: "ed@example.com", UserID: 1},
			{ID: 2, EmailAddress: "eddy@example.com", UserID: 1},
		},
	}

	user, err := Schema(m.user)
	require.NoError(t, err)
	address, err := Schema(m.address, WithConfig(validation.Config{FromAttributes: true, AliasGenerator: validation.ToCamel}))
	require.NoError(t, err)

	withAddresses, err := user.Extend("UserWithAddresses", validation.Field{
		Name:    "address",
		Type:    validation.ListOf(validation.ObjectOf(address)),
		Default: []any{},
	})
	require.NoError(t, err)

	inst, err := withAddresses.Validate(ed)
	require.NoError(t, err)

	data := inst.Dump(validation.ByAlias())
	assert.Equal(t, now, data["created"])
	assert.Equal(t, now, data["updated"])
	delete(data, "created")
	delete(data, "updated")
	assert.Equal(t, map[string]any{
		"id":       int64(1),
		"name":     "ed",
		"fullname": "Ed Jones",
		"nickname": "edsnickname",
		"address": []any{
			map[string]any{"emailAddress": "ed@example.com", "id": int64(1), "userId": int64(1)},
			map[string]any{"emailAddress": "eddy@example.com", "id": int64(2), "userId": int64(1)},
		},
	}, data)

	var back userRecord
	require.NoError(t, inst.Decode(&back, validation.ByAlias()))
	assert.Equal(t, ed, back)
}
