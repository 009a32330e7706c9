package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/database"
	"github.com/ZJUSCT/OITrack/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const apioYAML = `name: "APIO 2020"
duration: 300
medals:
  - name: gold
    cutoff: 200
problems:
  - number: 1
    name: "Painting Walls"
    links:
      - platform: "oj.uz"
        url: "https://oj.uz/problem/view/APIO20_paint"
  - number: 2
    name: "Swapping Cities"
`

const boiDayYAML = `name: "BOI 2021"
duration: 300
problems:
  - number: 1
    name: "A"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newCatalog(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "apio", "2020.yaml"), apioYAML)
	writeFile(t, filepath.Join(root, "apio", "scores_2020.json"), `{"1":[100,35,0],"2":[53,13,6]}`)
	writeFile(t, filepath.Join(root, "boi", "2021", "Day_1.yaml"), boiDayYAML)
	writeFile(t, filepath.Join(root, "boi", "2021", "Day_2.yaml"), boiDayYAML)
	writeFile(t, filepath.Join(root, "boi", "2021", "scores_Day_2.json"), `{"1":[1,2],"2":[3]}`)
	writeFile(t, filepath.Join(root, "boi", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "broken", "2000.yaml"), "name: [")
	return root
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.Storage{Database: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	return db
}

func TestLoad(t *testing.T) {
	contests, err := Load(newCatalog(t))
	require.NoError(t, err)
	require.Len(t, contests, 3)

	apio := contests[0]
	assert.Equal(t, "APIO 2020", apio.Name)
	assert.Equal(t, "apio", apio.Source)
	assert.Equal(t, 2020, apio.Year)
	assert.Equal(t, "apio-2020", apio.Slug())
	assert.Equal(t, []float64{100, 35, 0}, apio.Scores["1"])
	assert.NoError(t, apio.ValidateScores())

	day1, day2 := contests[1], contests[2]
	assert.Equal(t, "Day 1", day1.Stage)
	assert.Equal(t, "Day 2", day2.Stage)
	assert.Equal(t, 2021, day1.Year)
	assert.Equal(t, "boi-2021-day-1", day1.Slug())
	assert.Nil(t, day1.Scores)
	assert.Error(t, day2.ValidateScores())
}

func TestLoadSkipsContestsWithoutDuration(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "apio", "2020.yaml"), apioYAML)
	writeFile(t, filepath.Join(root, "ioi", "2019.yaml"), "name: \"IOI 2019\"\nproblems:\n  - number: 1\n    name: \"Shoes\"\n")
	writeFile(t, filepath.Join(root, "boi", "2021", "Day_1.yaml"), "name: \"BOI 2021\"\nduration: 0\n")
	writeFile(t, filepath.Join(root, "boi", "2021", "Day_2.yaml"), "name: \"BOI 2021\"\nduration: -5\n")

	contests, err := Load(root)
	require.NoError(t, err)
	require.Len(t, contests, 1)
	assert.Equal(t, "APIO 2020", contests[0].Name)
}

func TestLoadWithoutRoot(t *testing.T) {
	contests, err := Load("")
	assert.NoError(t, err)
	assert.Empty(t, contests)

	_, err = Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	db := newTestDB(t)
	root := newCatalog(t)

	published, err := Reload(db, root)
	require.NoError(t, err)
	assert.Equal(t, 3, published)

	apio, err := database.GetContestByNameStage(db, "APIO 2020", "")
	require.NoError(t, err)
	require.Len(t, apio.Problems, 2)
	assert.Equal(t, "Painting Walls", apio.Problems[0].Problem.Name)
	require.Len(t, apio.Problems[0].Problem.Links, 1)
	assert.Equal(t, "oj.uz", apio.Problems[0].Problem.Links[0].Platform)

	scores, err := database.GetContestScores(db, apio.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{53, 13, 6}, scores.ProblemScores.Data()["2"])
	assert.Equal(t, []string{"gold"}, []string(scores.MedalNames))

	// Day 2 is published even though its reference data is unusable.
	day2, err := database.GetContestByNameStage(db, "BOI 2021", "Day 2")
	require.NoError(t, err)
	_, err = database.GetContestScores(db, day2.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Both BOI days keep separate problems.
	day1, err := database.GetContestByNameStage(db, "BOI 2021", "Day 1")
	require.NoError(t, err)
	assert.NotEqual(t, day1.Problems[0].ProblemID, day2.Problems[0].ProblemID)
}

func TestRepublishIsStable(t *testing.T) {
	db := newTestDB(t)
	root := newCatalog(t)
	_, err := Reload(db, root)
	require.NoError(t, err)

	// New metadata and a trimmed problem list.
	writeFile(t, filepath.Join(root, "apio", "2020.yaml"), `name: "APIO 2020"
duration: 300
website: "https://apio2020.toki.id"
problems:
  - number: 1
    name: "Painting Walls"
`)
	writeFile(t, filepath.Join(root, "apio", "scores_2020.json"), `{"1":[100]}`)
	_, err = Reload(db, root)
	require.NoError(t, err)

	apio, err := database.GetContestByNameStage(db, "APIO 2020", "")
	require.NoError(t, err)
	assert.Equal(t, "https://apio2020.toki.id", apio.Website)
	assert.Len(t, apio.Problems, 2)

	scores, err := database.GetContestScores(db, apio.ID)
	require.NoError(t, err)
	assert.Equal(t, []float64{53, 13, 6}, scores.ProblemScores.Data()["2"])

	var count int64
	require.NoError(t, db.Model(&models.Contest{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}
