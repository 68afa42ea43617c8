package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore maps document paths directly onto Firestore documents.
type Firestore struct {
	client *firestore.Client
	log    *zap.Logger
}

// NewFirestore initializes a Firebase app for projectID. An empty
// credentialsFile uses application default credentials.
func NewFirestore(ctx context.Context, projectID, credentialsFile string, log *zap.Logger) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	log.Info("firestore store initialized", zap.String("project_id", projectID))
	return &Firestore{client: client, log: log}, nil
}

func (f *Firestore) Get(ctx context.Context, path string, dst any) error {
	if _, _, err := splitDocument(path); err != nil {
		return err
	}
	snap, err := f.client.Doc(path).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", path, err)
	}
	raw, err := snapshotJSON(snap)
	if err != nil {
		return err
	}
	return fromJSON(path, raw, dst)
}

// Set stores src through its JSON form so Firestore documents carry the same
// field names as the API.
func (f *Firestore) Set(ctx context.Context, path string, src any) error {
	if _, _, err := splitDocument(path); err != nil {
		return err
	}
	raw, err := toJSON(path, src)
	if err != nil {
		return err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if _, err := f.client.Doc(path).Set(ctx, data); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (f *Firestore) List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	q := f.client.Collection(collection).Query
	for _, flt := range filters {
		q = q.Where(flt.Field, "==", flt.Value)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []Snapshot
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", collection, err)
		}
		raw, err := snapshotJSON(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Path: collection + "/" + snap.Ref.ID, ID: snap.Ref.ID, Data: raw})
	}
	return out, nil
}

// Ping lists at most one root collection.
func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collections(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func snapshotJSON(snap *firestore.DocumentSnapshot) ([]byte, error) {
	raw, err := json.Marshal(snap.Data())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", snap.Ref.Path, err)
	}
	return raw, nil
}
