package registry_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/furlong/internal/adapters/registry"
	"github.com/okian/furlong/internal/domain/features"
	"github.com/okian/furlong/internal/domain/scoring"
	"github.com/okian/furlong/internal/validation"
	. "github.com/smartystreets/goconvey/convey"
)

const manifest = `version: "2.0"
scaler: scaler.json
models:
  - id: lightgbm
    kind: probability
    format: linear
    artifact: lightgbm.json
    scaled: true
    features: [weight, age]
  - id: lgbm_ranker
    kind: ranking
    format: tree
    artifact: ranker.json
    weight: 2
    entitled: 'tier in ["premium", "elite"]'
    features: [weight]
`

const linearArtifact = `{"weights":{"weight":0.5,"age":-0.25},"bias":0.1}`

const treeArtifact = `{"base_score":0,"trees":[{"nodes":[
  {"feature":"weight","threshold":57,"left":1,"right":2},
  {"leaf":1.0},
  {"leaf":-1.0}]}]}`

const scalerDoc = `{"mean":{"weight":56},"std":{"weight":2}}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	Convey("Given a manifest with two models and a shared scaler", t, func() {
		dir := writeFiles(t, map[string]string{
			"manifest.yaml": manifest,
			"lightgbm.json": linearArtifact,
			"ranker.json":   treeArtifact,
			"scaler.json":   scalerDoc,
		})

		Convey("When it is loaded", func() {
			reg, err := registry.Load(context.Background(), filepath.Join(dir, "manifest.yaml"))
			So(err, ShouldBeNil)

			Convey("Then models keep manifest order and kinds", func() {
				So(reg.IDs(), ShouldResemble, []string{"lightgbm", "lgbm_ranker"})
				So(reg.Version(), ShouldEqual, "2.0")
				So(reg.Len(), ShouldEqual, 2)
				s, ok := reg.Scorer("lgbm_ranker")
				So(ok, ShouldBeTrue)
				So(s.Kind(), ShouldEqual, scoring.Ranking)
				_, ok = reg.Scorer("missing")
				So(ok, ShouldBeFalse)
			})

			Convey("Then weights default to one", func() {
				So(reg.Weights(), ShouldResemble, map[string]float64{"lightgbm": 1, "lgbm_ranker": 2})
			})

			Convey("Then the scaler is applied to scaled models only", func() {
				s, _ := reg.Scorer("lightgbm")
				out, err := s.Score(context.Background(), scoring.Matrix{
					Columns: features.Schema{"weight", "age"},
					Rows:    [][]float64{{56, 0}},
				})
				So(err, ShouldBeNil)
				// weight scales to 0, age has no scaler entry: margin 0.1
				So(out[0], ShouldAlmostEqual, 0.52497918747894, 1e-9)
			})

			Convey("Then tiers see only the models they are entitled to", func() {
				So(reg.Entitled("free"), ShouldResemble, []string{"lightgbm"})
				So(reg.Entitled(" Premium "), ShouldResemble, []string{"lightgbm", "lgbm_ranker"})

				ok, err := reg.Allowed("basic", "lgbm_ranker")
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
				_, err = reg.Allowed("basic", "nope")
				So(errors.Is(err, registry.ErrUnknownModel), ShouldBeTrue)
			})

			Convey("Then Info describes every model for the tier", func() {
				cat := reg.Info("basic")
				So(cat.Version, ShouldEqual, "2.0")
				So(cat.Tier, ShouldEqual, "basic")
				So(cat.Models, ShouldHaveLength, 2)
				So(cat.Models[0].FeatureCount, ShouldEqual, 2)
				So(cat.Models[0].Format, ShouldEqual, registry.FormatLinear)
				So(cat.Models[0].Entitled, ShouldBeTrue)
				So(cat.Models[1].Entitled, ShouldBeFalse)
				So(cat.Models[1].Weight, ShouldEqual, 2)
			})
		})
	})
}

func TestLoadFailures(t *testing.T) {
	Convey("Given broken manifests", t, func() {
		ctx := context.Background()

		Convey("When the manifest file is missing", func() {
			_, err := registry.Load(ctx, filepath.Join(t.TempDir(), "none.yaml"))

			Convey("Then the load fails", func() {
				So(errors.Is(err, registry.ErrLoad), ShouldBeTrue)
			})
		})

		Convey("When the manifest violates the schema", func() {
			dir := writeFiles(t, map[string]string{"m.yaml": "version: \"1\"\nmodels: []\n"})
			_, err := registry.Load(ctx, filepath.Join(dir, "m.yaml"))

			Convey("Then the validation error is kept", func() {
				So(errors.Is(err, registry.ErrLoad), ShouldBeTrue)
				So(errors.Is(err, validation.ErrInvalidDocument), ShouldBeTrue)
			})
		})

		Convey("When an artifact weights a feature the model does not declare", func() {
			dir := writeFiles(t, map[string]string{
				"m.yaml": "version: \"1\"\nmodels:\n  - id: lin\n    kind: probability\n    format: linear\n    artifact: a.json\n    features: [age]\n",
				"a.json": linearArtifact,
			})
			_, err := registry.Load(ctx, filepath.Join(dir, "m.yaml"))

			Convey("Then the artifact is rejected", func() {
				So(errors.Is(err, registry.ErrLoad), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrInvalidArtifact), ShouldBeTrue)
			})
		})

		Convey("When a model asks for scaling without a scaler", func() {
			dir := writeFiles(t, map[string]string{
				"m.yaml": "version: \"1\"\nmodels:\n  - id: lin\n    kind: probability\n    format: linear\n    artifact: a.json\n    scaled: true\n    features: [weight, age]\n",
				"a.json": linearArtifact,
			})
			_, err := registry.Load(ctx, filepath.Join(dir, "m.yaml"))

			Convey("Then the load fails", func() {
				So(errors.Is(err, scoring.ErrInvalidArtifact), ShouldBeTrue)
			})
		})

		Convey("When an entitlement rule does not compile", func() {
			dir := writeFiles(t, map[string]string{
				"m.yaml": "version: \"1\"\nmodels:\n  - id: lin\n    kind: probability\n    format: linear\n    artifact: a.json\n    entitled: 'tier +'\n    features: [weight, age]\n",
				"a.json": linearArtifact,
			})
			_, err := registry.Load(ctx, filepath.Join(dir, "m.yaml"))

			Convey("Then the rule error is reported", func() {
				So(errors.Is(err, registry.ErrInvalidRule), ShouldBeTrue)
			})
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Given scorers built in code", t, func() {
		a, err := scoring.NewLinearModel("a", scoring.Probability, features.Schema{"weight"}, scoring.LinearArtifact{})
		So(err, ShouldBeNil)

		Convey("When an id is registered twice", func() {
			_, err := registry.New([]registry.Entry{{Scorer: a}, {Scorer: a}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, registry.ErrDuplicateID), ShouldBeTrue)
			})
		})

		Convey("When a rule does not return a bool", func() {
			_, err := registry.New([]registry.Entry{{Scorer: a, Entitled: `tier + "x"`}})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, registry.ErrInvalidRule), ShouldBeTrue)
			})
		})

		Convey("When a rule references the model id", func() {
			reg, err := registry.New([]registry.Entry{{Scorer: a, Entitled: `model == "a" && tier != "free"`}},
				registry.WithVersion("test"))
			So(err, ShouldBeNil)

			Convey("Then both variables are bound", func() {
				So(reg.Entitled("free"), ShouldBeEmpty)
				So(reg.Entitled("free"), ShouldNotBeNil)
				So(reg.Entitled("elite"), ShouldResemble, []string{"a"})
				So(reg.Version(), ShouldEqual, "test")
			})
		})
	})
}

func TestSampleManifest(t *testing.T) {
	Convey("Given the sample model set", t, func() {
		reg, err := registry.Load(context.Background(), filepath.Join("..", "..", "..", "models", "manifest.yaml"))

		Convey("Then every model loads", func() {
			So(err, ShouldBeNil)
			So(reg.IDs(), ShouldResemble, []string{"lightgbm", "xgboost", "random_forest", "lgbm_ranker"})
		})

		Convey("Then free and basic tiers get lightgbm only", func() {
			So(reg.Entitled("free"), ShouldResemble, []string{"lightgbm"})
			So(reg.Entitled("basic"), ShouldResemble, []string{"lightgbm"})
		})

		Convey("Then paying tiers get the whole ensemble", func() {
			So(reg.Entitled("Premium"), ShouldResemble, []string{"lightgbm", "xgboost", "random_forest", "lgbm_ranker"})
			So(reg.Entitled("elite"), ShouldHaveLength, 4)
		})
	})
}
