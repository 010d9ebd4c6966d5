package attrschema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchline/internal/core/apperror"
	"batchline/internal/core/entity"
	"batchline/internal/core/id"
)

func aluminiumSchema() Schema {
	return Schema{CategoryID: id.New(), Code: "ALU", Name: "Aluminium Coils", Archetype: ArchetypeAluminium}
}

func validAluminiumAttrs() entity.Attributes {
	return entity.Attributes{
		"weight_kg":   50.0,
		"gauge_mm":    0.45,
		"embossment":  "wood",
		"color_code":  "RAL9010",
		"coil_number": "C-100",
	}
}

func requireInvalidAttribute(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	require.Equal(t, apperror.CodeInvalidAttribute, appErr.Code)
	assert.Equal(t, field, appErr.Details["field"])
}

func TestValidate_Aluminium(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	ctx := context.Background()

	t.Run("valid full set", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, aluminiumSchema(), validAluminiumAttrs()))
	})

	t.Run("valid with json numbers", func(t *testing.T) {
		attrs := entity.Attributes{
			"weight_kg":   json.Number("50"),
			"gauge_mm":    json.Number("0.45"),
			"embossment":  "wood",
			"color_code":  "RAL9010",
			"coil_number": "C-100",
		}
		require.NoError(t, v.Validate(ctx, aluminiumSchema(), attrs))
	})

	t.Run("gauge at bounds", func(t *testing.T) {
		for _, g := range []string{"0.10", "1.00"} {
			attrs := validAluminiumAttrs()
			attrs["gauge_mm"] = json.Number(g)
			require.NoError(t, v.Validate(ctx, aluminiumSchema(), attrs), "gauge %s should pass", g)
		}
	})

	tests := []struct {
		name      string
		mutate    func(entity.Attributes)
		wantField string
	}{
		{"gauge above range", func(a entity.Attributes) { a["gauge_mm"] = 1.5 }, "gauge_mm"},
		{"gauge below range", func(a entity.Attributes) { a["gauge_mm"] = 0.05 }, "gauge_mm"},
		{"gauge missing", func(a entity.Attributes) { delete(a, "gauge_mm") }, "gauge_mm"},
		{"gauge non numeric", func(a entity.Attributes) { a["gauge_mm"] = "thin" }, "gauge_mm"},
		{"weight missing", func(a entity.Attributes) { delete(a, "weight_kg") }, "weight_kg"},
		{"weight zero", func(a entity.Attributes) { a["weight_kg"] = 0.0 }, "weight_kg"},
		{"weight negative", func(a entity.Attributes) { a["weight_kg"] = -3.0 }, "weight_kg"},
		{"weight non numeric", func(a entity.Attributes) { a["weight_kg"] = "heavy" }, "weight_kg"},
		{"embossment missing", func(a entity.Attributes) { delete(a, "embossment") }, "embossment"},
		{"embossment blank", func(a entity.Attributes) { a["embossment"] = "  " }, "embossment"},
		{"color code missing", func(a entity.Attributes) { delete(a, "color_code") }, "color_code"},
		{"coil number empty", func(a entity.Attributes) { a["coil_number"] = "" }, "coil_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := validAluminiumAttrs()
			tt.mutate(attrs)
			requireInvalidAttribute(t, v.Validate(ctx, aluminiumSchema(), attrs), tt.wantField)
		})
	}
}

func TestValidate_AluminiumGaugePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("gauge disabled rejects present gauge", func(t *testing.T) {
		v := NewValidator(ValidatorConfig{
			GaugeLookup: func(context.Context, Schema) (bool, error) { return false, nil },
		})
		requireInvalidAttribute(t, v.Validate(ctx, aluminiumSchema(), validAluminiumAttrs()), "gauge_mm")
	})

	t.Run("gauge disabled accepts absent gauge", func(t *testing.T) {
		v := NewValidator(ValidatorConfig{
			GaugeLookup: func(context.Context, Schema) (bool, error) { return false, nil },
		})
		attrs := validAluminiumAttrs()
		delete(attrs, "gauge_mm")
		require.NoError(t, v.Validate(ctx, aluminiumSchema(), attrs))
	})

	t.Run("lookup failure surfaces as internal", func(t *testing.T) {
		v := NewValidator(ValidatorConfig{
			GaugeLookup: func(context.Context, Schema) (bool, error) { return false, errors.New("settings unavailable") },
		})
		err := v.Validate(ctx, aluminiumSchema(), validAluminiumAttrs())
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeInternal))
	})
}

func TestValidate_StoneTile(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	ctx := context.Background()
	schema := Schema{CategoryID: id.New(), Code: "STN", Name: "Stone & Tile", Archetype: ArchetypeStoneTile}

	valid := func() entity.Attributes {
		return entity.Attributes{
			"design_pattern": "carrara",
			"pcs_per_pallet": json.Number("48"),
			"sqm_coverage":   json.Number("69.12"),
			"pallet_number":  "P-2207",
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, schema, valid()))
	})

	tests := []struct {
		name      string
		mutate    func(entity.Attributes)
		wantField string
	}{
		{"design pattern missing", func(a entity.Attributes) { delete(a, "design_pattern") }, "design_pattern"},
		{"pcs per pallet zero", func(a entity.Attributes) { a["pcs_per_pallet"] = 0 }, "pcs_per_pallet"},
		{"sqm coverage negative", func(a entity.Attributes) { a["sqm_coverage"] = -1.5 }, "sqm_coverage"},
		{"pallet number missing", func(a entity.Attributes) { delete(a, "pallet_number") }, "pallet_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := valid()
			tt.mutate(attrs)
			requireInvalidAttribute(t, v.Validate(ctx, schema, attrs), tt.wantField)
		})
	}
}

func TestValidate_Accessories(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	ctx := context.Background()
	schema := Schema{CategoryID: id.New(), Code: "ACC", Name: "Accessories", Archetype: ArchetypeAccessories}

	t.Run("packet size alone", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, schema, entity.Attributes{"packet_size": 25}))
	})

	t.Run("pcs count alone", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, schema, entity.Attributes{"pcs_count": json.Number("1200")}))
	})

	t.Run("both present", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, schema, entity.Attributes{"packet_size": 25, "pcs_count": 1200}))
	})

	t.Run("neither present", func(t *testing.T) {
		requireInvalidAttribute(t, v.Validate(ctx, schema, entity.Attributes{"color": "white"}), "packet_size")
	})

	t.Run("packet size zero", func(t *testing.T) {
		requireInvalidAttribute(t, v.Validate(ctx, schema, entity.Attributes{"packet_size": 0}), "packet_size")
	})

	t.Run("pcs count negative", func(t *testing.T) {
		requireInvalidAttribute(t, v.Validate(ctx, schema, entity.Attributes{"pcs_count": -10}), "pcs_count")
	})
}

func TestValidate_General(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	ctx := context.Background()

	require.NoError(t, v.Validate(ctx, Uncategorized(), nil))
	require.NoError(t, v.Validate(ctx, Uncategorized(), entity.Attributes{"anything": "goes", "n": -5}))
}

func TestValidate_UnknownArchetype(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	err := v.Validate(context.Background(), Schema{Code: "X", Archetype: "mystery"}, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestValidate_ExtraRules(t *testing.T) {
	v := NewValidator(ValidatorConfig{})
	ctx := context.Background()

	schema := aluminiumSchema()
	schema.ExtraRules = []string{
		`attrs.weight_kg <= 2000.0`,
		`attrs.color_code.startsWith("RAL")`,
	}
	schema.Version = 1

	t.Run("all rules hold", func(t *testing.T) {
		require.NoError(t, v.Validate(ctx, schema, validAluminiumAttrs()))
	})

	t.Run("rule violated", func(t *testing.T) {
		attrs := validAluminiumAttrs()
		attrs["weight_kg"] = 2500.0
		err := v.Validate(ctx, schema, attrs)
		requireInvalidAttribute(t, err, "attributes")
		appErr, _ := apperror.AsAppError(err)
		assert.Equal(t, `attrs.weight_kg <= 2000.0`, appErr.Details["rule"])
	})

	t.Run("rules checked after archetype", func(t *testing.T) {
		attrs := validAluminiumAttrs()
		delete(attrs, "weight_kg")
		requireInvalidAttribute(t, v.Validate(ctx, schema, attrs), "weight_kg")
	})

	t.Run("json numbers evaluate as doubles", func(t *testing.T) {
		attrs := validAluminiumAttrs()
		attrs["weight_kg"] = json.Number("1999.99")
		require.NoError(t, v.Validate(ctx, schema, attrs))
	})

	t.Run("integers evaluate as doubles", func(t *testing.T) {
		attrs := validAluminiumAttrs()
		attrs["weight_kg"] = 1500
		require.NoError(t, v.Validate(ctx, schema, attrs))
	})
}

func TestCompileRules(t *testing.T) {
	v := NewValidator(ValidatorConfig{})

	require.NoError(t, v.CompileRules([]string{
		`attrs.weight_kg > 0.0`,
		`has(attrs.coil_number) || has(attrs.pallet_number)`,
	}))

	err := v.CompileRules([]string{`attrs.weight_kg >`})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	err = v.CompileRules([]string{`attrs.weight_kg`})
	require.Error(t, err, "non-bool rule must be rejected")
}

func TestResolveArchetype(t *testing.T) {
	tests := []struct {
		name string
		want Archetype
	}{
		{"Aluminium Coils", ArchetypeAluminium},
		{"ALUMINUM SHEET", ArchetypeAluminium},
		{"Stone Slabs", ArchetypeStoneTile},
		{"Ceramic Tiles", ArchetypeStoneTile},
		{"Accessories", ArchetypeAccessories},
		{"Roof Fittings", ArchetypeAccessories},
		{"Paint", ArchetypeGeneral},
		{"", ArchetypeGeneral},
	}
	for _, tt := range tests {
		if got := ResolveArchetype(tt.name); got != tt.want {
			t.Errorf("ResolveArchetype(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
