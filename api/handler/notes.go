package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/rednote/models"
)

// NoteStore reads persisted crawl records.
type NoteStore interface {
	List() ([]models.NoteFile, error)
	Open(name string) (*os.File, error)
}

// ListNotes returns a handler for GET /notes.
func ListNotes(st NoteStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		notes, err := st.List()
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, notes)
	}
}

// NoteFile returns a handler for GET /notes_img/:filename. Only base names
// inside the data directory are served.
func NoteFile(st NoteStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("filename")
		f, err := st.Open(name)
		if err != nil {
			respondError(c, err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeStorage, "failed to stat "+name, err))
			return
		}
		if info.IsDir() {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "file not found: "+name, nil))
			return
		}
		http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
	}
}
