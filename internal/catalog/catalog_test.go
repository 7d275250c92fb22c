package catalog

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowmodel/internal/derive"
	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/orm"
	"github.com/koustreak/rowmodel/internal/validation"
)

func shopBase() *orm.Base {
	base := orm.NewBase()
	base.MustDefine("OrderLine", orm.MustTable("order_lines",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("order_id", orm.Integer{}, orm.NotNull(), orm.References("orders", "id")),
		orm.NewColumn("sku", orm.String{Length: 32}, orm.NotNull()),
	))
	base.MustDefine("Order", orm.MustTable("orders",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("customer_id", orm.Integer{}, orm.References("customers", "id")),
		orm.NewColumn("parent_id", orm.Integer{}, orm.References("orders", "id")),
	))
	base.MustDefine("Customer", orm.MustTable("customers",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("email", orm.Text{}, orm.NotNull()),
		orm.NewColumn("password_hash", orm.LargeBinary{}),
	))
	return base
}

func TestBuild(t *testing.T) {
	c, err := Build(shopBase(), validation.ORMConfig, map[string][]string{
		"Customer": {"password_hash"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.True(t, c.Acyclic())

	names := c.Names()
	require.Len(t, names, 3)
	assert.Less(t, slices.Index(names, "Customer"), slices.Index(names, "Order"))
	assert.Less(t, slices.Index(names, "Order"), slices.Index(names, "OrderLine"))

	customer, err := c.Get("Customer")
	require.NoError(t, err)
	_, hasHash := customer.Field("password_hash")
	assert.False(t, hasHash)
	assert.True(t, customer.Config().FromAttributes)

	entry, err := c.Entry("OrderLine")
	require.NoError(t, err)
	assert.Equal(t, "order_lines", entry.Model.TableName())
	assert.Len(t, entry.Schema.Fields(), 3)
}

func TestBuild_MatchesDerive(t *testing.T) {
	base := shopBase()
	c, err := Build(base, validation.ORMConfig, nil)
	require.NoError(t, err)

	for _, m := range base.Models() {
		want, err := derive.Schema(m)
		require.NoError(t, err)
		got, err := c.Get(m.ModelName())
		require.NoError(t, err)
		assert.Equal(t, want.Fields(), got.Fields())
	}
}

func TestBuild_Cycle(t *testing.T) {
	base := orm.NewBase()
	base.MustDefine("B", orm.MustTable("b",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("a_id", orm.Integer{}, orm.References("a", "id")),
	))
	base.MustDefine("A", orm.MustTable("a",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("b_id", orm.Integer{}, orm.References("b", "id")),
	))

	c, err := Build(base, validation.ORMConfig, nil)
	require.NoError(t, err)
	assert.False(t, c.Acyclic())
	assert.Equal(t, []string{"A", "B"}, c.Names())
}

func TestBuild_TypeResolutionAborts(t *testing.T) {
	base := shopBase()
	base.MustDefine("Place", orm.MustTable("places",
		orm.NewColumn("id", orm.Integer{}, orm.PrimaryKey()),
		orm.NewColumn("shape", orm.NullType{Name: "geometry"}),
	))

	c, err := Build(base, validation.ORMConfig, nil)
	require.Error(t, err)
	assert.Nil(t, c)
	assert.True(t, errs.IsTypeResolution(err))

	var terr *derive.TypeResolutionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "shape", terr.Column)
}

func TestCatalog_GetUnknown(t *testing.T) {
	c, err := Build(shopBase(), validation.ORMConfig, nil)
	require.NoError(t, err)

	_, err = c.Get("Nope")
	assert.True(t, errs.IsNotFound(err))
}

func TestCatalog_Each(t *testing.T) {
	c, err := Build(shopBase(), validation.ORMConfig, nil)
	require.NoError(t, err)

	var seen []string
	require.NoError(t, c.Each(func(e Entry) error {
		seen = append(seen, e.Schema.Name())
		return nil
	}))
	assert.Equal(t, c.Names(), seen)

	stop := errors.New("stop")
	calls := 0
	err = c.Each(func(Entry) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
