package database

import (
	"errors"

	"github.com/ZJUSCT/OITrack/internal/database/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User CRUD
func CreateUser(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByUsername(db *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUsers(db *gorm.DB, query string) ([]models.User, error) {
	var users []models.User
	if query != "" {
		like := "%" + query + "%"
		db = db.Where("id = ? OR username LIKE ? OR nickname LIKE ?", query, like, like)
	}
	if err := db.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func UpdateUser(db *gorm.DB, user *models.User) error {
	return db.Save(user).Error
}

// Settings

// GetPlatformUsernames returns the user's handle per platform. A user without
// a settings row simply has no linked platforms.
func GetPlatformUsernames(db *gorm.DB, userID string) (map[string]string, error) {
	var settings models.Settings
	err := db.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := settings.PlatformUsernames.Data()
	if names == nil {
		names = map[string]string{}
	}
	return names, nil
}

func SavePlatformUsernames(db *gorm.DB, userID string, names map[string]string) error {
	settings := models.Settings{
		UserID:            userID,
		PlatformUsernames: datatypes.NewJSONType(names),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform_usernames", "updated_at"}),
	}).Create(&settings).Error
}

// Contests

func orderedProblems(db *gorm.DB) *gorm.DB {
	return db.Order("problem_index asc")
}

func withProblems(db *gorm.DB, prefix string) *gorm.DB {
	return db.Preload(prefix+"Problems", orderedProblems).
		Preload(prefix + "Problems.Problem.Links")
}

func GetContestByID(db *gorm.DB, id uint) (*models.Contest, error) {
	var contest models.Contest
	if err := withProblems(db, "").Where("id = ?", id).First(&contest).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

func GetContestByNameStage(db *gorm.DB, name, stage string) (*models.Contest, error) {
	var contest models.Contest
	if err := withProblems(db, "").Where("name = ? AND stage = ?", name, stage).First(&contest).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

func GetContestBySlug(db *gorm.DB, slug string) (*models.Contest, error) {
	var contest models.Contest
	if err := db.Where("slug = ?", slug).First(&contest).Error; err != nil {
		return nil, err
	}
	return &contest, nil
}

func GetAllContests(db *gorm.DB) ([]models.Contest, error) {
	var contests []models.Contest
	if err := db.Preload("Problems", orderedProblems).Order("year desc, name asc, stage asc").Find(&contests).Error; err != nil {
		return nil, err
	}
	return contests, nil
}

// GetContestsWithScores loads the requested contests with their reference
// data. Private reference data is never returned.
func GetContestsWithScores(db *gorm.DB, ids []uint) ([]models.Contest, error) {
	var contests []models.Contest
	err := db.Preload("Scores", "private = ?", false).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&contests).Error
	if err != nil {
		return nil, err
	}
	return contests, nil
}

func GetContestScores(db *gorm.DB, contestID uint) (*models.ContestScores, error) {
	var scores models.ContestScores
	if err := db.Where("contest_id = ?", contestID).First(&scores).Error; err != nil {
		return nil, err
	}
	return &scores, nil
}

// Active virtual contests

func CreateActiveVirtualContest(db *gorm.DB, active *models.ActiveVirtualContest) error {
	return db.Omit(clause.Associations).Create(active).Error
}

func GetActiveVirtualContest(db *gorm.DB, userID string) (*models.ActiveVirtualContest, error) {
	var active models.ActiveVirtualContest
	if err := withProblems(db.Preload("Contest"), "Contest.").Where("user_id = ?", userID).First(&active).Error; err != nil {
		return nil, err
	}
	return &active, nil
}

func GetAllActiveVirtualContests(db *gorm.DB) ([]models.ActiveVirtualContest, error) {
	var actives []models.ActiveVirtualContest
	if err := db.Preload("Contest").Order("started_at asc").Find(&actives).Error; err != nil {
		return nil, err
	}
	return actives, nil
}

// GetActiveVirtualContestRow loads the attempt row alone, without the contest.
func GetActiveVirtualContestRow(db *gorm.DB, userID string) (*models.ActiveVirtualContest, error) {
	var active models.ActiveVirtualContest
	if err := db.Where("user_id = ?", userID).First(&active).Error; err != nil {
		return nil, err
	}
	return &active, nil
}

// UpdateActiveVirtualContest returns gorm.ErrRecordNotFound when the user has
// no active attempt.
func UpdateActiveVirtualContest(db *gorm.DB, userID string, updates map[string]interface{}) error {
	result := db.Model(&models.ActiveVirtualContest{}).Where("user_id = ?", userID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func DeleteActiveVirtualContest(db *gorm.DB, userID string) error {
	result := db.Where("user_id = ?", userID).Delete(&models.ActiveVirtualContest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Virtual submissions

func GetActiveSubmissions(db *gorm.DB, userID string) ([]models.VirtualSubmission, error) {
	var subs []models.VirtualSubmission
	if err := db.Where("active_virtual_contest_user_id = ?", userID).Order("time asc").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func DeleteActiveSubmissions(db *gorm.DB, userID string) error {
	return db.Where("active_virtual_contest_user_id = ?", userID).Delete(&models.VirtualSubmission{}).Error
}

// CreateSubmissions assigns every submission to the user's active attempt.
func CreateSubmissions(db *gorm.DB, userID string, subs []models.VirtualSubmission) error {
	if len(subs) == 0 {
		return nil
	}
	for i := range subs {
		owner := userID
		subs[i].ActiveVirtualContestUserID = &owner
		subs[i].VirtualContestID = nil
	}
	return db.Create(&subs).Error
}

// ReparentSubmissions moves the raw submissions of an active attempt onto a
// finalized record. Only submissions for the given contest problems move.
func ReparentSubmissions(db *gorm.DB, userID string, virtualContestID uint, contestProblemIDs []uint) error {
	if len(contestProblemIDs) == 0 {
		return nil
	}
	return db.Model(&models.VirtualSubmission{}).
		Where("active_virtual_contest_user_id = ? AND contest_problem_id IN ?", userID, contestProblemIDs).
		Updates(map[string]interface{}{
			"virtual_contest_id":             virtualContestID,
			"active_virtual_contest_user_id": nil,
		}).Error
}

// Finalized virtual contests

func CreateUserVirtualContest(db *gorm.DB, vc *models.UserVirtualContest) error {
	return db.Omit(clause.Associations).Create(vc).Error
}

func HasCompletedContest(db *gorm.DB, userID string, contestID uint) (bool, error) {
	var count int64
	err := db.Model(&models.UserVirtualContest{}).
		Where("user_id = ? AND contest_id = ?", userID, contestID).
		Count(&count).Error
	return count > 0, err
}

func GetUserVirtualContest(db *gorm.DB, userID string, contestID uint) (*models.UserVirtualContest, error) {
	var vc models.UserVirtualContest
	err := db.Preload("Contest").
		Preload("Contest.Problems", orderedProblems).
		Preload("Submissions", func(db *gorm.DB) *gorm.DB { return db.Order("time asc") }).
		Where("user_id = ? AND contest_id = ?", userID, contestID).
		First(&vc).Error
	if err != nil {
		return nil, err
	}
	return &vc, nil
}

func GetUserVirtualContests(db *gorm.DB, userID string) ([]models.UserVirtualContest, error) {
	var vcs []models.UserVirtualContest
	if err := db.Preload("Contest").Where("user_id = ?", userID).Order("ended_at desc").Find(&vcs).Error; err != nil {
		return nil, err
	}
	return vcs, nil
}

func UpdateUserContextData(db *gorm.DB, id uint, context map[string]string) error {
	return db.Model(&models.UserVirtualContest{}).
		Where("id = ?", id).
		Update("user_context_data", datatypes.NewJSONType(context)).Error
}

// Problem progress

// GetUserProblemData returns the stored progress for the given problems,
// keyed by problem ID.
func GetUserProblemData(db *gorm.DB, userID string, problemIDs []uint) (map[uint]models.UserProblemData, error) {
	var rows []models.UserProblemData
	if err := db.Where("user_id = ? AND problem_id IN ?", userID, problemIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.UserProblemData, len(rows))
	for _, r := range rows {
		out[r.ProblemID] = r
	}
	return out, nil
}

func UpsertUserProblemData(db *gorm.DB, data *models.UserProblemData) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "problem_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "status", "updated_at"}),
	}).Create(data).Error
}

// Shared platform credentials

func GetPlatformCredential(db *gorm.DB, platform string) (string, error) {
	var cred models.PlatformCredential
	err := db.Where("platform = ?", platform).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cred.Value, nil
}

func SavePlatformCredential(db *gorm.DB, platform, value string) error {
	cred := models.PlatformCredential{Platform: platform, Value: value}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cred).Error
}
