package service

import (
	"context"
	"errors"
	"testing"

	"warbler/internal/models"

	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByUsernameFn   func(context.Context, string) (*models.User, error)
	getPasswordHashFn func(context.Context, uint) (string, error)
	createFn          func(context.Context, *models.User) error
	updateFn          func(context.Context, *models.User) error
	deleteFn          func(context.Context, uint) error
	listFn            func(context.Context, int, int) ([]models.User, error)
	searchFn          func(context.Context, string, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetPasswordHash(ctx context.Context, id uint) (string, error) {
	return s.getPasswordHashFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) Search(ctx context.Context, q string, limit, offset int) ([]models.User, error) {
	return s.searchFn(ctx, q, limit, offset)
}

type messageRepoStub struct {
	createFn      func(context.Context, *models.Message) error
	getByIDFn     func(context.Context, uint) (*models.Message, error)
	deleteFn      func(context.Context, uint) error
	listByUserFn  func(context.Context, uint, int) ([]models.Message, error)
	countByUserFn func(context.Context, uint) (int64, error)
	timelineFn    func(context.Context, []uint, int) ([]models.Message, error)
	listLikedByFn func(context.Context, uint, int) ([]models.Message, error)
}

func (s *messageRepoStub) Create(ctx context.Context, msg *models.Message) error {
	return s.createFn(ctx, msg)
}
func (s *messageRepoStub) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	return s.getByIDFn(ctx, id)
}
func (s *messageRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *messageRepoStub) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.listByUserFn(ctx, userID, limit)
}
func (s *messageRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *messageRepoStub) Timeline(ctx context.Context, authorIDs []uint, limit int) ([]models.Message, error) {
	return s.timelineFn(ctx, authorIDs, limit)
}
func (s *messageRepoStub) ListLikedBy(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	return s.listLikedByFn(ctx, userID, limit)
}

type followRepoStub struct {
	createFn         func(context.Context, uint, uint) error
	deleteFn         func(context.Context, uint, uint) error
	existsFn         func(context.Context, uint, uint) (bool, error)
	followingIDsFn   func(context.Context, uint) ([]uint, error)
	listFollowingFn  func(context.Context, uint) ([]models.User, error)
	listFollowersFn  func(context.Context, uint) ([]models.User, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	countFollowersFn func(context.Context, uint) (int64, error)
}

func (s *followRepoStub) Create(ctx context.Context, followerID, followedID uint) error {
	return s.createFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followedID uint) error {
	return s.deleteFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.existsFn(ctx, followerID, followedID)
}
func (s *followRepoStub) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followingIDsFn(ctx, userID)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	return s.listFollowingFn(ctx, userID)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.listFollowersFn(ctx, userID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowingFn(ctx, userID)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowersFn(ctx, userID)
}

type likeRepoStub struct {
	toggleFn          func(context.Context, uint, uint) (bool, error)
	likedMessageIDsFn func(context.Context, uint, []uint) ([]uint, error)
	countByUserFn     func(context.Context, uint) (int64, error)
}

func (s *likeRepoStub) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	return s.toggleFn(ctx, userID, messageID)
}
func (s *likeRepoStub) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	return s.likedMessageIDsFn(ctx, userID, messageIDs)
}
func (s *likeRepoStub) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return s.countByUserFn(ctx, userID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:         func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:      func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn:   func(context.Context, string) (*models.User, error) { return nil, nil },
		getPasswordHashFn: func(context.Context, uint) (string, error) { return "", nil },
		createFn:          func(context.Context, *models.User) error { return nil },
		updateFn:          func(context.Context, *models.User) error { return nil },
		deleteFn:          func(context.Context, uint) error { return nil },
		listFn:            func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		searchFn:          func(context.Context, string, int, int) ([]models.User, error) { return nil, nil },
	}
}

func noopMessageRepo() *messageRepoStub {
	return &messageRepoStub{
		createFn:      func(context.Context, *models.Message) error { return nil },
		getByIDFn:     func(_ context.Context, id uint) (*models.Message, error) { return &models.Message{ID: id}, nil },
		deleteFn:      func(context.Context, uint) error { return nil },
		listByUserFn:  func(context.Context, uint, int) ([]models.Message, error) { return nil, nil },
		countByUserFn: func(context.Context, uint) (int64, error) { return 0, nil },
		timelineFn:    func(context.Context, []uint, int) ([]models.Message, error) { return nil, nil },
		listLikedByFn: func(context.Context, uint, int) ([]models.Message, error) { return nil, nil },
	}
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		createFn:         func(context.Context, uint, uint) error { return nil },
		deleteFn:         func(context.Context, uint, uint) error { return nil },
		existsFn:         func(context.Context, uint, uint) (bool, error) { return false, nil },
		followingIDsFn:   func(context.Context, uint) ([]uint, error) { return nil, nil },
		listFollowingFn:  func(context.Context, uint) ([]models.User, error) { return nil, nil },
		listFollowersFn:  func(context.Context, uint) ([]models.User, error) { return nil, nil },
		countFollowingFn: func(context.Context, uint) (int64, error) { return 0, nil },
		countFollowersFn: func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		toggleFn:          func(context.Context, uint, uint) (bool, error) { return true, nil },
		likedMessageIDsFn: func(context.Context, uint, []uint) ([]uint, error) { return nil, nil },
		countByUserFn:     func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected *models.AppError, got %T", err)
	require.Equal(t, code, appErr.Code)
}
