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

type PromptHistory struct{ ent.Schema }

func (PromptHistory) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "prompt_history"},
	}
}

func (PromptHistory) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).Default(uuid.New).Immutable(),
		field.UUID("user_id", uuid.UUID{}),
		field.Enum("kind").Values(constants.AssetKinds...),
		field.Text("prompt").NotEmpty(),
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

func (PromptHistory) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("user", User.Type).
			Ref("prompts").
			Field("user_id").
			Required().
			Unique(),
	}
}

func (PromptHistory) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "created_at"),
	}
}
