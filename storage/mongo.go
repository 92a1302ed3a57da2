package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoDB struct {
	client   *mongo.Client
	cases    *mongo.Collection
	counters *mongo.Collection
}

type caseDoc struct {
	ID        int64     `bson:"case_id"`
	GuildID   string    `bson:"guild_id"`
	UserID    string    `bson:"user_id"`
	ModID     string    `bson:"mod_id"`
	Action    string    `bson:"action"`
	Reason    string    `bson:"reason"`
	Duration  string    `bson:"duration,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func OpenMongo(ctx context.Context, uri, dbName string) (*MongoDB, error) {
	if uri == "" || dbName == "" {
		return nil, errors.New("database.mongodb.uri and database.mongodb.database must be set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	mdb := client.Database(dbName)
	m := &MongoDB{
		client:   client,
		cases:    mdb.Collection("mod_cases"),
		counters: mdb.Collection("counters"),
	}

	if _, err := m.cases.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "case_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("index case_id: %w", err)
	}
	if _, err := m.cases.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "guild_id", Value: 1}, {Key: "user_id", Value: 1}},
	}); err != nil {
		return nil, fmt.Errorf("index guild_user: %w", err)
	}

	return m, nil
}

func (m *MongoDB) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "mod_cases"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next case id: %w", err)
	}
	return counter.Seq, nil
}

func (m *MongoDB) AddModCase(ctx context.Context, c ModCase) (ModCase, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id, err := m.nextID(ctx)
	if err != nil {
		return ModCase{}, err
	}
	c.ID = id
	_, err = m.cases.InsertOne(ctx, caseDoc{
		ID:        c.ID,
		GuildID:   c.GuildID,
		UserID:    c.UserID,
		ModID:     c.ModID,
		Action:    c.Action,
		Reason:    c.Reason,
		Duration:  c.Duration,
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return ModCase{}, fmt.Errorf("insert mod case: %w", err)
	}
	return c, nil
}

func (m *MongoDB) ModCases(ctx context.Context, guildID, userID string, limit int) ([]ModCase, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "case_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := m.cases.Find(ctx, bson.M{"guild_id": guildID, "user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find mod cases: %w", err)
	}
	var docs []caseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mod cases: %w", err)
	}

	out := make([]ModCase, 0, len(docs))
	for _, d := range docs {
		out = append(out, ModCase{
			ID:        d.ID,
			GuildID:   d.GuildID,
			UserID:    d.UserID,
			ModID:     d.ModID,
			Action:    d.Action,
			Reason:    d.Reason,
			Duration:  d.Duration,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
