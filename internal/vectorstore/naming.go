package vectorstore

import (
	"fmt"
	"strings"
)

// Collection naming is a compatibility contract: names must be bit-exact
// across deployments because they address physical backend state.

// CollectionName returns the main collection name for a project.
func CollectionName(projectID int64) string {
	return strings.TrimSpace(fmt.Sprintf("collection_%d", projectID))
}

// CacheName returns the semantic-cache collection name for a project.
// The cache lifecycle is independent from the main collection: either may
// exist without the other.
func CacheName(projectID int64) string {
	return strings.TrimSpace(fmt.Sprintf("cache_collection_%d", projectID))
}

// IndexName returns the similarity index name for a pgvector collection
// table. Derived deterministically so existence checks and drops agree.
func IndexName(collection string) string {
	return collection + "_vector_idx"
}

// CollectionPrefix is the name prefix shared by all main collections,
// used when listing.
const CollectionPrefix = "collection_"
