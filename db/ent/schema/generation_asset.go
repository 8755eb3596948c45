package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"

	"github.com/google/uuid"

	"github.com/wenjia-zhai/genbridge/constants"
)

type GenerationAsset struct{ ent.Schema }

func (GenerationAsset) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "generation_assets"},
	}
}

func (GenerationAsset) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("user_id", uuid.UUID{}),
		field.Enum("kind").Values(constants.AssetKinds...),
		field.String("vendor").NotEmpty(),
		field.String("model").Optional(),
		field.Text("prompt").NotEmpty(),
		field.String("job_id").NotEmpty(),
		field.Text("url").NotEmpty(),
		field.String("object_key").Optional(),
		field.Int64("size_bytes").Default(0),
		field.String("content_type").Optional(),
		// false means the vendor URL is still the only copy and will expire
		field.Bool("durable").Default(false),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (GenerationAsset) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY assets -> ONE user (FK: generation_assets.user_id)
		edge.From("user", User.Type).
			Ref("assets").
			Field("user_id").
			Required().
			Unique(),
	}
}

func (GenerationAsset) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "created_at"),
		index.Fields("job_id"),
	}
}
