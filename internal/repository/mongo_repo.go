package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/breakthrough-cafe/cafe-cms/internal/database"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongo creates repositories backed by MongoDB collections
func NewMongo(m *database.Mongo) *Repositories {
	return &Repositories{
		Article:  NewMongoArticleRepo(m.DB.Collection(database.ArticlesCollection)),
		Category: NewMongoCategoryRepo(m.DB.Collection(database.CategoriesCollection)),
		Health:   m,
	}
}

// articleDocument is the stored shape: the article plus its ObjectID
type articleDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	models.Article `bson:",inline"`
}

func (d *articleDocument) toModel() *models.Article {
	a := d.Article
	a.ID = d.ID.Hex()
	return &a
}

// mongoArticleRepo is the MongoDB implementation of ArticleRepository
type mongoArticleRepo struct {
	coll *mongo.Collection
}

// NewMongoArticleRepo creates a new article repository over coll
func NewMongoArticleRepo(coll *mongo.Collection) ArticleRepository {
	return &mongoArticleRepo{coll: coll}
}

// Create inserts a new article and assigns its id
func (r *mongoArticleRepo) Create(ctx context.Context, article *models.Article) error {
	res, err := r.coll.InsertOne(ctx, articleDocument{Article: *article})
	if err != nil {
		return err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	article.ID = oid.Hex()
	return nil
}

// GetByID retrieves an article by ID
func (r *mongoArticleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	var doc articleDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// List returns one page of matching articles and the total match count
func (r *mongoArticleRepo) List(ctx context.Context, q models.ArticleQuery) ([]*models.Article, int64, error) {
	filter := mongoFilter(q.Filter)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dir := 1
	if q.SortDesc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: mongoSortField(q.SortBy), Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []articleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	items := make([]*models.Article, 0, len(docs))
	for i := range docs {
		items = append(items, docs[i].toModel())
	}
	return items, total, nil
}

// Update applies set with $set, so disjoint concurrent updates merge
func (r *mongoArticleRepo) Update(ctx context.Context, id string, set map[string]any) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, models.ErrInvalidID
	}
	if len(set) == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		return n > 0, err
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// IncrementViews adds one view with $inc and returns the document after the update
func (r *mongoArticleRepo) IncrementViews(ctx context.Context, id string) (*models.Article, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrInvalidID
	}

	var doc articleDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// Delete removes an article
func (r *mongoArticleRepo) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, models.ErrInvalidID
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// Count returns the total number of articles
func (r *mongoArticleRepo) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

// StreamAll streams matching articles in creation order
func (r *mongoArticleRepo) StreamAll(ctx context.Context, filter models.ArticleFilter, callback func(*models.Article) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc articleDocument
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		if err := callback(doc.toModel()); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func mongoFilter(f models.ArticleFilter) bson.M {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.IsFeatured != nil {
		filter["isFeatured"] = *f.IsFeatured
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func mongoSortField(sortBy string) string {
	switch sortBy {
	case models.SortByTitle:
		return "title.en"
	case models.SortByCreatedAt, models.SortByPublishedAt, models.SortByViews:
		return sortBy
	default:
		return models.SortByUpdatedAt
	}
}

// mongoCategoryRepo is the MongoDB implementation of CategoryRepository
type mongoCategoryRepo struct {
	coll *mongo.Collection
}

// NewMongoCategoryRepo creates a new category repository over coll
func NewMongoCategoryRepo(coll *mongo.Collection) CategoryRepository {
	return &mongoCategoryRepo{coll: coll}
}

// Create inserts a category; the unique slug index reports duplicates
func (r *mongoCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	_, err := r.coll.InsertOne(ctx, category)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateSlug
	}
	return err
}

// List returns all categories by order, then slug
func (r *mongoCategoryRepo) List(ctx context.Context) ([]*models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "slug", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	categories := make([]*models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// SlugExists checks if a category with the given slug exists
func (r *mongoCategoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	return n > 0, err
}
