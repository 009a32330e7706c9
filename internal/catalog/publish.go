package catalog

import (
	"errors"
	"fmt"

	"github.com/ZJUSCT/OITrack/internal/database/models"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Publish writes the contests into the database. Contests are identified by
// (name, stage); once published their problem list is left untouched, while
// metadata and reference scores are refreshed.
func Publish(db *gorm.DB, contests []*Contest) (int, error) {
	published := 0
	for _, c := range contests {
		if err := db.Transaction(func(tx *gorm.DB) error { return publishContest(tx, c) }); err != nil {
			zap.S().Warnf("failed to publish contest %s %s: %v", c.Name, c.Stage, err)
			continue
		}
		published++
	}
	return published, nil
}

// Reload loads the catalogue from root and publishes it.
func Reload(db *gorm.DB, root string) (int, error) {
	contests, err := Load(root)
	if err != nil {
		return 0, err
	}
	return Publish(db, contests)
}

func publishContest(tx *gorm.DB, c *Contest) error {
	var contest models.Contest
	err := tx.Preload("Problems").Where("name = ? AND stage = ?", c.Name, c.Stage).First(&contest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		contest = models.Contest{
			Name:     c.Name,
			Stage:    c.Stage,
			Slug:     c.Slug(),
			Source:   c.Source,
			Year:     c.Year,
			Duration: c.Duration,
			Date:     c.Date,
			Website:  c.Website,
		}
		if err := tx.Omit(clause.Associations).Create(&contest).Error; err != nil {
			return err
		}
		for i, p := range c.Problems {
			problem, err := upsertProblem(tx, c, p)
			if err != nil {
				return fmt.Errorf("problem %d: %w", i+1, err)
			}
			cp := models.ContestProblem{ContestID: contest.ID, ProblemIndex: i, ProblemID: problem.ID}
			if err := tx.Omit(clause.Associations).Create(&cp).Error; err != nil {
				return err
			}
		}
		zap.S().Infof("published contest %s %s with %d problems", c.Name, c.Stage, len(c.Problems))
	case err != nil:
		return err
	default:
		if len(contest.Problems) != len(c.Problems) {
			zap.S().Warnf("contest %s %s is already published with %d problems, ignoring new list of %d",
				c.Name, c.Stage, len(contest.Problems), len(c.Problems))
		}
		if err := tx.Model(&contest).Updates(map[string]interface{}{
			"source":  c.Source,
			"year":    c.Year,
			"date":    c.Date,
			"website": c.Website,
		}).Error; err != nil {
			return err
		}
	}

	if c.Scores == nil {
		return nil
	}
	// Bad reference data only costs the contest its stats.
	if len(contest.Problems) > 0 && len(contest.Problems) != len(c.Problems) {
		zap.S().Warnf("reference scores of %s %s do not match the published problem list, skipping", c.Name, c.Stage)
		return nil
	}
	if err := c.ValidateScores(); err != nil {
		zap.S().Warnf("invalid reference scores for %s %s: %v", c.Name, c.Stage, err)
		return nil
	}
	return upsertScores(tx, contest.ID, c)
}

func upsertProblem(tx *gorm.DB, c *Contest, p Problem) (*models.Problem, error) {
	key := models.Problem{
		Source: firstNonEmpty(p.Source, c.Source),
		Year:   p.Year,
		Number: p.Number,
		Extra:  p.Extra,
	}
	if key.Year == 0 {
		key.Year = c.Year
	}
	if p.Source == "" && p.Extra == "" {
		// Problems of different stages are numbered independently.
		key.Extra = c.Stage
	}

	var problem models.Problem
	err := tx.Where(&key, "Source", "Year", "Number", "Extra").
		Attrs(models.Problem{Name: p.Name}).
		FirstOrCreate(&problem).Error
	if err != nil {
		return nil, err
	}
	if problem.Name != p.Name && p.Name != "" {
		if err := tx.Model(&problem).Update("name", p.Name).Error; err != nil {
			return nil, err
		}
	}

	if err := tx.Where("problem_id = ?", problem.ID).Delete(&models.ProblemLink{}).Error; err != nil {
		return nil, err
	}
	for _, l := range p.Links {
		link := models.ProblemLink{ProblemID: problem.ID, Platform: l.Platform, URL: l.URL}
		if err := tx.Create(&link).Error; err != nil {
			return nil, err
		}
	}
	return &problem, nil
}

func upsertScores(tx *gorm.DB, contestID uint, c *Contest) error {
	names := make([]string, 0, len(c.Medals))
	cutoffs := make([]float64, 0, len(c.Medals))
	for _, m := range c.Medals {
		names = append(names, m.Name)
		cutoffs = append(cutoffs, m.Cutoff)
	}
	scores := models.ContestScores{
		ContestID:     contestID,
		ProblemScores: datatypes.NewJSONType(c.Scores),
		MedalCutoffs:  models.Scores(cutoffs),
		MedalNames:    datatypes.JSONSlice[string](names),
		Private:       c.Private,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"problem_scores", "medal_cutoffs", "medal_names", "private"}),
	}).Create(&scores).Error
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
