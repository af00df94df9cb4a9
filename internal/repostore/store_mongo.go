package repostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/buildwatch/internal/contract"
	"github.com/huangsam/buildwatch/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoConnectTimeout bounds connecting and the initial ping.
const mongoConnectTimeout = 10 * time.Second

// MongoStore keeps one document per repository in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	target string
}

var _ contract.RepoStore = &MongoStore{} // Compile-time check

// NewMongoStore connects with the credentials of sc, verifies the connection
// with a ping and ensures the unique (repo_owner, repo_name) index.
func NewMongoStore(ctx context.Context, sc contract.StoreConfig) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(fmt.Sprintf("mongodb://%s:%d", sc.Host, sc.Port)).
		SetAuth(options.Credential{
			AuthSource: sc.AuthDBName,
			Username:   sc.Username,
			Password:   sc.Password,
		}).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB at %s: %w", sc.Target(), err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		// Disconnect in case of ping failure to avoid leaking sockets.
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongodb database. Check that the server is running and connection parameters are valid: %w", err)
	}

	coll := client.Database(sc.DBName).Collection(sc.CollectionName)
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "repo_owner", Value: 1}, {Key: "repo_name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(connectCtx, index); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index on %s: %w", sc.CollectionName, err)
	}

	return &MongoStore{client: client, coll: coll, target: sc.Target()}, nil
}

func repoFilter(owner, name string) bson.D {
	return bson.D{{Key: "repo_owner", Value: owner}, {Key: "repo_name", Value: name}}
}

// Get returns the entry for owner/name, or nil when there is none.
func (s *MongoStore) Get(ctx context.Context, owner, name string) (*schema.RepoEntry, error) {
	var entry schema.RepoEntry
	err := s.coll.FindOne(ctx, repoFilter(owner, name)).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", schema.RepoFullName(owner, name), err)
	}
	entry.Makefiles = normalizeMakefiles(entry.Makefiles)
	if err := checkEntry(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AddRepo records a clone attempt. An existing entry is left untouched.
func (s *MongoStore) AddRepo(ctx context.Context, owner, name string, cloneSuccessful bool, repoSize int64) error {
	entry := schema.NewRepoEntry(owner, name, cloneSuccessful, repoSize)
	update := bson.D{{Key: "$setOnInsert", Value: entry}}
	if _, err := s.coll.UpdateOne(ctx, repoFilter(owner, name), update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to add %s: %w", schema.RepoFullName(owner, name), err)
	}
	return nil
}

// UpdateMakefile replaces the Makefile outcomes of an existing entry and marks it compiled.
func (s *MongoStore) UpdateMakefile(ctx context.Context, owner, name string, makefiles []schema.RepoMakefileEntry, ignoreLengthMismatch bool) error {
	if err := checkMakefiles(owner, name, makefiles); err != nil {
		return err
	}
	makefiles = normalizeMakefiles(makefiles)

	var stored struct {
		NumMakefiles int `bson:"num_makefiles"`
	}
	err := s.coll.FindOne(ctx, repoFilter(owner, name)).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound(owner, name)
	}
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", schema.RepoFullName(owner, name), err)
	}
	if err := checkLength(owner, name, stored.NumMakefiles, len(makefiles), ignoreLengthMismatch); err != nil {
		return err
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "compiled", Value: true},
		{Key: "num_makefiles", Value: len(makefiles)},
		{Key: "num_binaries", Value: schema.CountBinaries(makefiles)},
		{Key: "makefiles", Value: makefiles},
	}}}
	res, err := s.coll.UpdateOne(ctx, repoFilter(owner, name), update)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", schema.RepoFullName(owner, name), err)
	}
	if res.MatchedCount != 1 {
		return fmt.Errorf("%w: %s matched %d documents", contract.ErrInvariantViolation, schema.RepoFullName(owner, name), res.MatchedCount)
	}
	return nil
}

// CountMakefiles sums num_makefiles over compiled entries.
func (s *MongoStore) CountMakefiles(ctx context.Context) (int, error) {
	return s.sumCompiled(ctx, "num_makefiles")
}

// CountBinaries sums num_binaries over compiled entries.
func (s *MongoStore) CountBinaries(ctx context.Context) (int, error) {
	return s.sumCompiled(ctx, "num_binaries")
}

func (s *MongoStore) sumCompiled(ctx context.Context, field string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "compiled", Value: true}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$" + field}}},
		}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", field, err)
	}
	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("failed to sum %s: %w", field, err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return int(results[0].Total), nil
}

// GetStatus returns status information about the store.
func (s *MongoStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(schema.MongoBackend),
		Connected: s.client != nil,
		Target:    s.target,
	}
	total, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return status, fmt.Errorf("failed to count entries: %w", err)
	}
	compiled, err := s.coll.CountDocuments(ctx, bson.D{{Key: "compiled", Value: true}})
	if err != nil {
		return status, fmt.Errorf("failed to count compiled entries: %w", err)
	}
	cloned, err := s.coll.CountDocuments(ctx, bson.D{{Key: "clone_successful", Value: true}})
	if err != nil {
		return status, fmt.Errorf("failed to count cloned entries: %w", err)
	}
	status.TotalEntries = int(total)
	status.CompiledCount = int(compiled)
	status.ClonedCount = int(cloned)
	if status.TotalMakefiles, err = s.CountMakefiles(ctx); err != nil {
		return status, err
	}
	if status.TotalBinaries, err = s.CountBinaries(ctx); err != nil {
		return status, err
	}
	return status, nil
}

// Clear deletes every document in the collection.
func (s *MongoStore) Clear(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
