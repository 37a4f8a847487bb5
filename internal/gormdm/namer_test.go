package gormdm

import (
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

type Author struct {
	ID    uint
	Posts []Post
}

type Post struct {
	ID       uint
	AuthorID uint
	Title    string `gorm:"size:200"`
}

func TestNamingStrategyNames(t *testing.T) {
	ns := NewNamingStrategy("app_", 30)

	assert.Equal(t, "app_users", ns.TableName("User"))
	assert.Equal(t, "app_users_email_index", ns.IndexName("app_users", "Email"))
	assert.Equal(t, "app_users_email_uk", ns.UniqueName("app_users", "email"))
	assert.Equal(t, "app_users_age_ck", ns.CheckerName("app_users", "age"))
}

func TestNamingStrategyShortens(t *testing.T) {
	ns := NewNamingStrategy("", 30)
	name := ns.IndexName("user_notifications", "NotifiableType")
	assert.LessOrEqual(t, utf8.RuneCountInString(name), 30)
	assert.NotEqual(t, "user_notifications_notifiable_type_index", name)
}

func TestNamingStrategyHashFallback(t *testing.T) {
	ns := NewNamingStrategy("", 12)
	name := ns.IndexName("user_notifications", "NotifiableType")
	assert.Len(t, name, 12)
	assert.Equal(t, "index_", name[:6])
	assert.Equal(t, name, ns.IndexName("user_notifications", "NotifiableType"))
}

func TestRelationshipFKName(t *testing.T) {
	ns := NewNamingStrategy("", 30)

	post, err := schema.Parse(&Post{}, &sync.Map{}, ns)
	require.NoError(t, err)
	author, err := schema.Parse(&Author{}, &sync.Map{}, ns)
	require.NoError(t, err)

	rel, ok := author.Relationships.Relations["Posts"]
	require.True(t, ok)
	assert.Equal(t, "posts_author_id_fk", ns.RelationshipFKName(*rel))

	constraint := rel.ParseConstraint()
	require.NotNil(t, constraint)
	assert.Equal(t, "posts_author_id_fk", constraint.Name)
	assert.Equal(t, "posts", constraint.Schema.Table)

	assert.Equal(t, "posts", post.Table)
}
