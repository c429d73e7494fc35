package validation_test

import (
	"errors"
	"testing"

	"github.com/okian/furlong/internal/validation"
	"github.com/smartystreets/goconvey/convey"
)

const validManifest = `version: "2.0"
scaler: scaler.json
models:
  - id: lightgbm
    kind: probability
    format: tree
    artifact: lightgbm.json
    features: [weight, age]
  - id: remote_nn
    kind: ranking
    format: remote
    endpoint: http://localhost:9000/score
    features: [weight]
`

const invalidManifest = `version: "2.0"
models:
  - id: Bad Id
    kind: regression
    format: remote
    features: [weight, weight]
`

func TestManifest(t *testing.T) {
	convey.Convey("Given manifests", t, func() {
		convey.Convey("When the manifest is well formed", func() {
			err := validation.YAML(validation.Manifest, []byte(validManifest))

			convey.Convey("Then it passes", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the manifest breaks several rules", func() {
			err := validation.YAML(validation.Manifest, []byte(invalidManifest))

			convey.Convey("Then every problem is listed with its location", func() {
				convey.So(errors.Is(err, validation.ErrInvalidDocument), convey.ShouldBeTrue)
				var ve *validation.Error
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Document, convey.ShouldEqual, validation.Manifest)
				convey.So(len(ve.Problems), convey.ShouldBeGreaterThanOrEqualTo, 3)
				convey.So(err.Error(), convey.ShouldContainSubstring, "/models/0")
			})
		})

		convey.Convey("When the YAML does not parse", func() {
			err := validation.YAML(validation.Manifest, []byte("models: [unterminated"))

			convey.Convey("Then the parse error is reported", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "YAML parse error")
			})
		})
	})
}

func TestArtifacts(t *testing.T) {
	convey.Convey("Given model artifacts", t, func() {
		convey.So(validation.JSON(validation.Linear, []byte(`{"weights":{"weight":0.5},"bias":-1}`)), convey.ShouldBeNil)
		convey.So(validation.JSON(validation.Linear, []byte(`{"weights":{"weight":"heavy"}}`)), convey.ShouldNotBeNil)

		tree := `{"base_score":0,"trees":[{"nodes":[{"feature":"weight","threshold":57,"left":1,"right":2},{"leaf":-0.1},{"leaf":0.2}]}]}`
		convey.So(validation.JSON(validation.Tree, []byte(tree)), convey.ShouldBeNil)
		convey.So(validation.JSON(validation.Tree, []byte(`{"trees":[{"nodes":[{"feature":"weight"}]}]}`)), convey.ShouldNotBeNil)

		convey.So(validation.JSON(validation.Scaler, []byte(`{"mean":{"weight":55},"std":{"weight":2.5}}`)), convey.ShouldBeNil)
		convey.So(validation.JSON(validation.Scaler, []byte(`{"mean":{},"std":{"weight":-1}}`)), convey.ShouldNotBeNil)
	})
}

func TestRequests(t *testing.T) {
	convey.Convey("Given request bodies", t, func() {
		convey.Convey("Then a batch needs a non-empty entries array", func() {
			convey.So(validation.JSON(validation.Batch, []byte(`{"entries":[{"horse_name":"Winx"}],"confidence_threshold":0.7}`)), convey.ShouldBeNil)
			convey.So(validation.JSON(validation.Batch, []byte(`{"entries":[]}`)), convey.ShouldNotBeNil)
			convey.So(validation.JSON(validation.Batch, []byte(`{"entries":[{}],"confidence_threshold":1.5}`)), convey.ShouldNotBeNil)
			convey.So(validation.JSON(validation.Batch, []byte(`[1,2]`)), convey.ShouldNotBeNil)
		})

		convey.Convey("Then every streak race must be a valid entry", func() {
			convey.So(validation.JSON(validation.Streak, []byte(`{"races":[{"horse_name":"Winx","distance":"1400m"}]}`)), convey.ShouldBeNil)
			convey.So(validation.JSON(validation.Streak, []byte(`{"races":[{"distance":1400}]}`)), convey.ShouldNotBeNil)
		})

		convey.Convey("Then malformed JSON is reported as such", func() {
			err := validation.JSON(validation.Batch, []byte(`{"entries":`))
			convey.So(errors.Is(err, validation.ErrInvalidDocument), convey.ShouldBeTrue)
		})

		convey.Convey("Then an unknown document name is an error", func() {
			convey.So(validation.Value("nope", map[string]any{}), convey.ShouldNotBeNil)
		})
	})
}
