package repository

import (
	"context"
	"errors"
	"time"

	"healthhive/internal/domain/user/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const UserCollection = "users"

type userDocument struct {
	ID                 string    `bson:"_id"`
	FullName           string    `bson:"fullName"`
	Email              string    `bson:"email"`
	Role               string    `bson:"role"`
	Age                int       `bson:"age"`
	Gender             string    `bson:"gender,omitempty"`
	MedicalConditions  []string  `bson:"medicalConditions"`
	ProfileImage       string    `bson:"profileImage"`
	LanguagePreference string    `bson:"languagePreference"`
	CreatedAt          time.Time `bson:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt"`
}

func toUserDocument(u *model.User) *userDocument {
	conditions := u.MedicalConditions
	if conditions == nil {
		conditions = []string{}
	}
	return &userDocument{
		ID:                 u.ID,
		FullName:           u.FullName,
		Email:              u.Email,
		Role:               string(u.Role),
		Age:                u.Age,
		Gender:             string(u.Gender),
		MedicalConditions:  conditions,
		ProfileImage:       u.ProfileImage,
		LanguagePreference: u.LanguagePreference,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func (d *userDocument) toModel() *model.User {
	conditions := d.MedicalConditions
	if conditions == nil {
		conditions = []string{}
	}
	return &model.User{
		ID:                 d.ID,
		FullName:           d.FullName,
		Email:              d.Email,
		Role:               model.Role(d.Role),
		Age:                d.Age,
		Gender:             model.Gender(d.Gender),
		MedicalConditions:  conditions,
		ProfileImage:       d.ProfileImage,
		LanguagePreference: d.LanguagePreference,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type mongoUserRepository struct {
	users *mongo.Collection
}

// NewMongoUserRepository MongoDB 实现
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{users: db.Collection(UserCollection)}
}

// EnsureUserIndexes email 唯一
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UserCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, err := r.users.InsertOne(ctx, toUserDocument(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("user %s or email %s already exists", user.ID, user.Email)
		}
		return apperr.Unavailable("create user", err)
	}
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.D{{Key: "_id", Value: database.MatchID(id)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, apperr.Unavailable("get user", err)
	}
	return doc.toModel(), nil
}

func (r *mongoUserRepository) GetList(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	total, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, apperr.Unavailable("count users", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := r.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, apperr.Unavailable("list users", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, apperr.Unavailable("list users", err)
	}
	users := make([]*model.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toModel())
	}
	return users, total, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	doc := toUserDocument(user)
	res, err := r.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: database.MatchID(user.ID)}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "fullName", Value: doc.FullName},
		{Key: "age", Value: doc.Age},
		{Key: "gender", Value: doc.Gender},
		{Key: "medicalConditions", Value: doc.MedicalConditions},
		{Key: "profileImage", Value: doc.ProfileImage},
		{Key: "languagePreference", Value: doc.LanguagePreference},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}})
	if err != nil {
		return apperr.Unavailable("update user", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user", user.ID)
	}
	return nil
}

func (r *mongoUserRepository) UpdateRole(ctx context.Context, id string, role model.Role, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: database.MatchID(id)}}, bson.D{{Key: "$set", Value: bson.D{
		{Key: "role", Value: string(role)},
		{Key: "updatedAt", Value: at},
	}}})
	if err != nil {
		return apperr.Unavailable("update user role", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user", id)
	}
	return nil
}

// FindAuthors 只投影公开字段
func (r *mongoUserRepository) FindAuthors(ctx context.Context, ids []string) (map[string]model.AuthorSummary, error) {
	ids = uniqueIDs(ids)
	out := make(map[string]model.AuthorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetProjection(bson.D{
		{Key: "fullName", Value: 1},
		{Key: "profileImage", Value: 1},
		{Key: "role", Value: 1},
	})
	cursor, err := r.users.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: database.IDValues(ids)}}}}, opts)
	if err != nil {
		return nil, apperr.Unavailable("find authors", err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Unavailable("find authors", err)
	}
	for i := range docs {
		u := docs[i].toModel()
		out[u.ID] = u.Summary()
	}
	return out, nil
}
