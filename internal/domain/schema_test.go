package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func createSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "project_key", Type: TypeEnum, Required: true, Allowed: []string{"CRM", "OPS"}},
		{Name: "summary", Type: TypeString, Required: true},
		{Name: "description", Type: TypeString},
		{Name: "issue_type", Type: TypeString, Default: "Task"},
		{Name: "max_results", Type: TypeInteger, Default: 50, Min: IntPtr(1)},
		{Name: "notify", Type: TypeBoolean},
	}}
}

func validationErr(t *testing.T, err error) *ValidationError {
	t.Helper()
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v (%T), want *ValidationError", err, err)
	}
	return vErr
}

func TestSchema_Validate(t *testing.T) {
	schema := createSchema()

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantField  string
		wantReason string
		want       map[string]interface{}
	}{
		{
			name: "defaults applied and unknown fields dropped",
			args: map[string]interface{}{"project_key": "CRM", "summary": "s", "extra": 1},
			want: map[string]interface{}{"project_key": "CRM", "summary": "s", "issue_type": "Task", "max_results": 50},
		},
		{
			name:       "first failure wins",
			args:       map[string]interface{}{"project_key": "NOPE"},
			wantField:  "project_key",
			wantReason: ReasonInvalidEnum,
		},
		{
			name:       "required missing",
			args:       map[string]interface{}{"project_key": "CRM"},
			wantField:  "summary",
			wantReason: ReasonMissing,
		},
		{
			name:       "blank string counts as missing",
			args:       map[string]interface{}{"project_key": "CRM", "summary": "   "},
			wantField:  "summary",
			wantReason: ReasonMissing,
		},
		{
			name:       "null counts as missing",
			args:       map[string]interface{}{"project_key": nil},
			wantField:  "project_key",
			wantReason: ReasonMissing,
		},
		{
			name:       "enum is case sensitive",
			args:       map[string]interface{}{"project_key": "crm", "summary": "s"},
			wantField:  "project_key",
			wantReason: ReasonInvalidEnum,
		},
		{
			name:       "string field given a number",
			args:       map[string]interface{}{"project_key": "CRM", "summary": 42.0},
			wantField:  "summary",
			wantReason: ReasonTypeMismatch,
		},
		{
			name:       "fractional integer",
			args:       map[string]interface{}{"project_key": "CRM", "summary": "s", "max_results": 2.5},
			wantField:  "max_results",
			wantReason: ReasonTypeMismatch,
		},
		{
			name:       "integer below minimum",
			args:       map[string]interface{}{"project_key": "CRM", "summary": "s", "max_results": 0.0},
			wantField:  "max_results",
			wantReason: ReasonOutOfRange,
		},
		{
			name:       "boolean from garbage",
			args:       map[string]interface{}{"project_key": "CRM", "summary": "s", "notify": "yes"},
			wantField:  "notify",
			wantReason: ReasonTypeMismatch,
		},
		{
			name: "coercions",
			args: map[string]interface{}{"project_key": "OPS", "summary": "s", "max_results": "7", "notify": "TRUE", "description": "d"},
			want: map[string]interface{}{"project_key": "OPS", "summary": "s", "description": "d", "issue_type": "Task", "max_results": 7, "notify": true},
		},
		{
			name: "json.Number integer",
			args: map[string]interface{}{"project_key": "OPS", "summary": "s", "max_results": json.Number("12")},
			want: map[string]interface{}{"project_key": "OPS", "summary": "s", "issue_type": "Task", "max_results": 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.Validate(tt.args)
			if tt.wantReason != "" {
				if got != nil {
					t.Errorf("expected no output on failure, got %v", got)
				}
				vErr := validationErr(t, err)
				if vErr.Field != tt.wantField || vErr.Reason != tt.wantReason {
					t.Errorf("error = %s/%s, want %s/%s", vErr.Field, vErr.Reason, tt.wantField, tt.wantReason)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchema_IntegerRangeAgreesAcrossForms(t *testing.T) {
	schema := createSchema()
	tooLarge := []interface{}{
		3000000000.0,
		"3000000000",
		json.Number("3000000000"),
		int64(3000000000),
		"-3000000000",
	}
	for _, raw := range tooLarge {
		_, err := schema.Validate(map[string]interface{}{"project_key": "CRM", "summary": "s", "max_results": raw})
		vErr := validationErr(t, err)
		if vErr.Field != "max_results" || vErr.Reason != ReasonTypeMismatch {
			t.Errorf("%#v: error = %s/%s, want max_results/%s", raw, vErr.Field, vErr.Reason, ReasonTypeMismatch)
		}
	}

	for _, raw := range []interface{}{2147483647.0, "2147483647", json.Number("2147483647"), int64(2147483647), 2147483647} {
		got, err := schema.Validate(map[string]interface{}{"project_key": "CRM", "summary": "s", "max_results": raw})
		if err != nil {
			t.Errorf("%#v: Validate() error = %v", raw, err)
			continue
		}
		if got["max_results"] != 2147483647 {
			t.Errorf("%#v: max_results = %v", raw, got["max_results"])
		}
	}
}

func TestSchema_InvalidEnumReportsAllowed(t *testing.T) {
	_, err := createSchema().Validate(map[string]interface{}{"project_key": "X"})
	vErr := validationErr(t, err)
	if !reflect.DeepEqual(vErr.Allowed, []string{"CRM", "OPS"}) {
		t.Errorf("Allowed = %v", vErr.Allowed)
	}
}

func TestSchema_JSONSchema(t *testing.T) {
	js := createSchema().JSONSchema()

	if js.Type != "object" {
		t.Errorf("Type = %s, want object", js.Type)
	}
	if !reflect.DeepEqual(js.Required, []string{"project_key", "summary"}) {
		t.Errorf("Required = %v", js.Required)
	}

	project := js.Properties["project_key"].(map[string]interface{})
	if project["type"] != "string" || !reflect.DeepEqual(project["enum"], []string{"CRM", "OPS"}) {
		t.Errorf("project_key = %v", project)
	}
	maxResults := js.Properties["max_results"].(map[string]interface{})
	if maxResults["type"] != "integer" || maxResults["minimum"] != 1 || maxResults["default"] != 50 {
		t.Errorf("max_results = %v", maxResults)
	}

	empty := Schema{}.JSONSchema()
	data, _ := json.Marshal(empty)
	if string(data) != `{"type":"object","properties":{}}` {
		t.Errorf("empty schema = %s", data)
	}
}

// Feature: schema validation, coercion is total and deterministic.
func TestProperty_SchemaValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	schema := createSchema()

	properties.Property("integral numbers and their decimal strings coerce to the same int", prop.ForAll(
		func(n int32) bool {
			if n < 1 {
				n = -n + 1
			}
			base := map[string]interface{}{"project_key": "CRM", "summary": "s"}

			base["max_results"] = float64(n)
			fromNumber, err1 := schema.Validate(base)
			base["max_results"] = strconv.Itoa(int(n))
			fromString, err2 := schema.Validate(base)

			return err1 == nil && err2 == nil &&
				fromNumber["max_results"] == int(n) &&
				fromString["max_results"] == int(n)
		},
		gen.Int32Range(1, 1<<30),
	))

	properties.Property("values outside the allow-list are rejected before anything else", prop.ForAll(
		func(key string) bool {
			_, err := schema.Validate(map[string]interface{}{"project_key": key, "summary": "s"})
			if key == "CRM" || key == "OPS" {
				return err == nil
			}
			var vErr *ValidationError
			return errors.As(err, &vErr) && vErr.Field == "project_key" &&
				(vErr.Reason == ReasonInvalidEnum || vErr.Reason == ReasonMissing)
		},
		gen.OneGenOf(gen.AlphaString(), gen.OneConstOf("CRM", "OPS", "crm", "Ops ")),
	))

	properties.Property("output only holds declared fields", prop.ForAll(
		func(extra string, summary string) bool {
			args := map[string]interface{}{"project_key": "OPS", "summary": "x" + summary, "zz_" + extra: true}
			out, err := schema.Validate(args)
			if err != nil {
				return false
			}
			for k := range out {
				declared := false
				for _, f := range schema.Fields {
					declared = declared || f.Name == k
				}
				if !declared {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("validation is deterministic", prop.ForAll(
		func(summary string, max int) bool {
			args := map[string]interface{}{"project_key": "CRM", "summary": summary, "max_results": float64(max)}
			out1, err1 := schema.Validate(args)
			out2, err2 := schema.Validate(args)
			return reflect.DeepEqual(out1, out2) && reflect.DeepEqual(err1, err2)
		},
		gen.AlphaString(),
		gen.IntRange(-5, 500),
	))

	properties.TestingRun(t)
}
