package repository

import (
	"context"
	"errors"
	"time"

	"healthhive/internal/domain/comment/model"
	"healthhive/pkg/apperr"
	"healthhive/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CommentCollection = "comments"
	PostCollection    = "posts"
)

type editDocument struct {
	PreviousText string    `bson:"previousText"`
	EditedAt     time.Time `bson:"editedAt"`
}

type reportDocument struct {
	User       string    `bson:"user"`
	Reason     string    `bson:"reason"`
	ReportedAt time.Time `bson:"reportedAt"`
}

// commentDocument comments 集合文档，字段名即存储契约
type commentDocument struct {
	ID            string           `bson:"_id"`
	Post          string           `bson:"post"`
	Author        string           `bson:"author"`
	ParentComment *string          `bson:"parentComment"`
	Text          string           `bson:"text"`
	IsAnonymous   bool             `bson:"isAnonymous"`
	Likes         []string         `bson:"likes"`
	Dislikes      []string         `bson:"dislikes"`
	IsEdited      bool             `bson:"isEdited"`
	EditHistory   []editDocument   `bson:"editHistory"`
	Status        string           `bson:"status"`
	ReportCount   int              `bson:"reportCount"`
	ReportedBy    []reportDocument `bson:"reportedBy"`
	CreatedAt     time.Time        `bson:"createdAt"`
	UpdatedAt     time.Time        `bson:"updatedAt"`
}

// toDocument 数组字段必须写成空数组而不是 null，否则 $addToSet / $push 会失败
func toDocument(c *model.Comment) *commentDocument {
	doc := &commentDocument{
		ID:            c.ID,
		Post:          c.Post,
		Author:        c.Author,
		ParentComment: c.ParentComment,
		Text:          c.Text,
		IsAnonymous:   c.IsAnonymous,
		Likes:         c.Reactions.Users(model.ReactionLike),
		Dislikes:      c.Reactions.Users(model.ReactionDislike),
		IsEdited:      c.IsEdited,
		EditHistory:   make([]editDocument, 0, len(c.EditHistory)),
		Status:        string(c.Status),
		ReportCount:   c.ReportCount,
		ReportedBy:    make([]reportDocument, 0, len(c.ReportedBy)),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	for _, e := range c.EditHistory {
		doc.EditHistory = append(doc.EditHistory, editDocument{PreviousText: e.PreviousText, EditedAt: e.EditedAt})
	}
	for _, r := range c.ReportedBy {
		doc.ReportedBy = append(doc.ReportedBy, reportDocument{User: r.User, Reason: r.Reason, ReportedAt: r.ReportedAt})
	}
	return doc
}

func (d *commentDocument) toModel() *model.Comment {
	c := &model.Comment{
		ID:            d.ID,
		Post:          d.Post,
		Author:        d.Author,
		ParentComment: d.ParentComment,
		Text:          d.Text,
		IsAnonymous:   d.IsAnonymous,
		Reactions:     model.FromSets(d.Likes, d.Dislikes),
		IsEdited:      d.IsEdited,
		EditHistory:   make([]model.EditRecord, 0, len(d.EditHistory)),
		Status:        model.Status(d.Status),
		ReportCount:   d.ReportCount,
		ReportedBy:    make([]model.Report, 0, len(d.ReportedBy)),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, e := range d.EditHistory {
		c.EditHistory = append(c.EditHistory, model.EditRecord{PreviousText: e.PreviousText, EditedAt: e.EditedAt})
	}
	for _, r := range d.ReportedBy {
		c.ReportedBy = append(c.ReportedBy, model.Report{User: r.User, Reason: r.Reason, ReportedAt: r.ReportedAt})
	}
	return c
}

type mongoCommentRepository struct {
	comments *mongo.Collection
	posts    *mongo.Collection
}

// NewMongoCommentRepository MongoDB 实现
func NewMongoCommentRepository(db *mongo.Database) CommentRepository {
	return &mongoCommentRepository{
		comments: db.Collection(CommentCollection),
		posts:    db.Collection(PostCollection),
	}
}

// EnsureCommentIndexes 创建列表与举报队列所需索引
func EnsureCommentIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CommentCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "parentComment", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "reportCount", Value: -1}}},
	})
	return err
}

func filterDocument(f model.Filter) bson.D {
	doc := bson.D{}
	if f.Post != "" {
		doc = append(doc, bson.E{Key: "post", Value: database.MatchID(f.Post)})
	}
	if f.TopLevel {
		doc = append(doc, bson.E{Key: "parentComment", Value: nil})
	}
	if f.Parent != "" {
		doc = append(doc, bson.E{Key: "parentComment", Value: database.MatchID(f.Parent)})
	}
	if len(f.Statuses) > 0 {
		doc = append(doc, bson.E{Key: "status", Value: bson.D{{Key: "$in", Value: statusStrings(f.Statuses)}}})
	}
	if f.MinReports > 0 {
		doc = append(doc, bson.E{Key: "reportCount", Value: bson.D{{Key: "$gte", Value: f.MinReports}}})
	}
	return doc
}

// sortDocument 同分时按创建时间倒序，最后按 _id 保证翻页稳定
func sortDocument(s model.SortOrder) bson.D {
	switch s {
	case model.SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}
	case model.SortMostLiked:
		return bson.D{{Key: "likeCount", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	case model.SortMostReported:
		return bson.D{{Key: "reportCount", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
}

func (r *mongoCommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	if _, err := r.comments.InsertOne(ctx, toDocument(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("comment %s already exists", c.ID)
		}
		return apperr.Unavailable("insert comment", err)
	}
	return nil
}

func (r *mongoCommentRepository) FindByID(ctx context.Context, id string) (*model.Comment, error) {
	var doc commentDocument
	err := r.comments.FindOne(ctx, bson.D{{Key: "_id", Value: database.MatchID(id)}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("comment", id)
	}
	if err != nil {
		return nil, apperr.Unavailable("find comment", err)
	}
	return doc.toModel(), nil
}

// FindMany 使用聚合管道，mostLiked 需要先计算 likes 数组长度
func (r *mongoCommentRepository) FindMany(ctx context.Context, filter model.Filter, sort model.SortOrder, skip, limit int) ([]*model.Comment, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filterDocument(filter)}},
		{{Key: "$addFields", Value: bson.D{{Key: "likeCount", Value: bson.D{
			{Key: "$size", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}},
		}}}}},
		{{Key: "$sort", Value: sortDocument(sort)}},
	}
	if skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(skip)}})
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(limit)}})
	}

	cursor, err := r.comments.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Unavailable("list comments", err)
	}
	defer cursor.Close(ctx)

	var docs []commentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperr.Unavailable("list comments", err)
	}

	out := make([]*model.Comment, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *mongoCommentRepository) Count(ctx context.Context, filter model.Filter) (int64, error) {
	n, err := r.comments.CountDocuments(ctx, filterDocument(filter))
	if err != nil {
		return 0, apperr.Unavailable("count comments", err)
	}
	return n, nil
}

// findOneAndUpdate 返回更新后的文档；未匹配时返回 (nil, nil)
func (r *mongoCommentRepository) findOneAndUpdate(ctx context.Context, op string, filter bson.D, update interface{}) (*model.Comment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc commentDocument
	err := r.comments.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(op, err)
	}
	return doc.toModel(), nil
}

// UpdateText 用更新管道在一次写入内把旧正文追加进历史
// 正文未变化时过滤条件不匹配，回读当前文档
func (r *mongoCommentRepository) UpdateText(ctx context.Context, id, newText string, editedAt time.Time) (*model.Comment, bool, error) {
	filter := bson.D{
		{Key: "_id", Value: database.MatchID(id)},
		{Key: "text", Value: bson.D{{Key: "$ne", Value: newText}}},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "editHistory", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$editHistory", bson.A{}}}},
				bson.A{bson.D{{Key: "previousText", Value: "$text"}, {Key: "editedAt", Value: editedAt}}},
			}}}},
			{Key: "text", Value: bson.D{{Key: "$literal", Value: newText}}},
			{Key: "isEdited", Value: true},
			{Key: "updatedAt", Value: editedAt},
		}}},
	}

	c, err := r.findOneAndUpdate(ctx, "update comment text", filter, update)
	if err != nil {
		return nil, false, err
	}
	if c != nil {
		return c, true, nil
	}

	c, err = r.FindByID(ctx, id)
	return c, false, err
}

func reactionFields(kind model.ReactionKind) (set, other string) {
	if kind == model.ReactionLike {
		return "likes", "dislikes"
	}
	return "dislikes", "likes"
}

// SetReaction 加入目标集合并从相反集合移除，单文档原子
func (r *mongoCommentRepository) SetReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, error) {
	set, other := reactionFields(kind)
	update := bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: set, Value: user}}},
		{Key: "$pull", Value: bson.D{{Key: other, Value: user}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at}}},
	}

	c, err := r.findOneAndUpdate(ctx, "set reaction", bson.D{{Key: "_id", Value: database.MatchID(id)}}, update)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("comment", id)
	}
	return c, nil
}

func (r *mongoCommentRepository) RemoveReaction(ctx context.Context, id, user string, kind model.ReactionKind, at time.Time) (*model.Comment, bool, error) {
	set, _ := reactionFields(kind)
	filter := bson.D{{Key: "_id", Value: database.MatchID(id)}, {Key: set, Value: user}}
	update := bson.D{
		{Key: "$pull", Value: bson.D{{Key: set, Value: user}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: at}}},
	}

	c, err := r.findOneAndUpdate(ctx, "remove reaction", filter, update)
	if err != nil {
		return nil, false, err
	}
	if c != nil {
		return c, true, nil
	}

	c, err = r.FindByID(ctx, id)
	return c, false, err
}

func (r *mongoCommentRepository) AddReport(ctx context.Context, id string, report model.Report, dedupe bool) (*model.Comment, error) {
	filter := bson.D{{Key: "_id", Value: database.MatchID(id)}}
	if dedupe {
		filter = append(filter, bson.E{Key: "reportedBy.user", Value: bson.D{{Key: "$ne", Value: report.User}}})
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "reportedBy", Value: reportDocument{
			User:       report.User,
			Reason:     report.Reason,
			ReportedAt: report.ReportedAt,
		}}}},
		{Key: "$inc", Value: bson.D{{Key: "reportCount", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: report.ReportedAt}}},
	}

	c, err := r.findOneAndUpdate(ctx, "add report", filter, update)
	if err != nil || c != nil {
		return c, err
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, apperr.Conflict("user %s already reported comment %s", report.User, id)
}

func (r *mongoCommentRepository) ClearReports(ctx context.Context, id string, at time.Time) (*model.Comment, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "reportCount", Value: 0},
		{Key: "reportedBy", Value: bson.A{}},
		{Key: "updatedAt", Value: at},
	}}}

	c, err := r.findOneAndUpdate(ctx, "clear reports", bson.D{{Key: "_id", Value: database.MatchID(id)}}, update)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("comment", id)
	}
	return c, nil
}

func (r *mongoCommentRepository) SetStatus(ctx context.Context, id string, status model.Status, at time.Time) (*model.Comment, error) {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(status)},
		{Key: "updatedAt", Value: at},
	}}}

	c, err := r.findOneAndUpdate(ctx, "set comment status", bson.D{{Key: "_id", Value: database.MatchID(id)}}, update)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("comment", id)
	}
	return c, nil
}

func (r *mongoCommentRepository) PostExists(ctx context.Context, postID string) (bool, error) {
	n, err := r.posts.CountDocuments(ctx, bson.D{{Key: "_id", Value: database.MatchID(postID)}}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperr.Unavailable("check post", err)
	}
	return n > 0, nil
}
