package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mb-mentor/internal/dialogue"
	"mb-mentor/internal/session"
)

type conversationView struct {
	ID         string            `json:"id"`
	Mentor     string            `json:"mentor"`
	Terminated bool              `json:"terminated"`
	Turns      int               `json:"turns"`
	Summary    string            `json:"summary,omitempty"`
	Analysis   string            `json:"analysis,omitempty"`
	Messages   []session.Message `json:"messages,omitempty"`
}

func viewOf(sess *session.Session, withMessages bool) conversationView {
	v := conversationView{
		ID:         sess.ID,
		Mentor:     sess.Mentor(),
		Terminated: sess.Terminated(),
		Turns:      sess.AssistantTurns(),
		Summary:    sess.Summary(),
		Analysis:   sess.Analysis(),
	}
	if withMessages {
		// System entries never reach the user-facing transcript.
		v.Messages = sess.Transcript()
	}
	return v
}

func lookupSession(c *gin.Context, deps Deps) (*session.Session, bool) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
		return nil, false
	}
	sess, err := deps.Sessions.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "conversation not found"}})
		return nil, false
	}
	return sess, true
}

// POST /conversations  {"mentor": "meta"}
func CreateConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}
		var req struct {
			Mentor string `json:"mentor"`
		}
		_ = c.ShouldBindJSON(&req)
		sess := deps.Sessions.Create(c.Request.Context(), userID, req.Mentor)
		c.JSON(http.StatusCreated, viewOf(sess, false))
	}
}

// GET /conversations
func ListConversationsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}
		ids := deps.Sessions.List(userID)
		out := make([]conversationView, 0, len(ids))
		for _, id := range ids {
			if sess, err := deps.Sessions.Get(c.Request.Context(), userID, id); err == nil {
				out = append(out, viewOf(sess, false))
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

// GET /conversations/:id
func GetConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, viewOf(sess, true))
	}
}

// POST /conversations/:id/messages  {"content": "..."}
func SendMessageHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		var req struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "missing content"}})
			return
		}

		reply, err := deps.Engine.Respond(c.Request.Context(), sess, req.Content)
		deps.Sessions.Save(c.Request.Context(), sess)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrTerminated):
				c.JSON(http.StatusConflict, gin.H{"error": gin.H{"message": err.Error()}})
			case errors.Is(err, session.ErrTurnInFlight):
				c.JSON(http.StatusTooManyRequests, gin.H{"error": gin.H{"message": err.Error()}})
			case reply != "":
				// Completion failed; the fallback reply is already in the
				// transcript so the turn still has a response.
				c.JSON(http.StatusBadGateway, gin.H{
					"error": gin.H{"message": "response generation failed"},
					"reply": reply,
				})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"reply":      reply,
			"terminated": sess.Terminated(),
			"turns":      sess.AssistantTurns(),
		})
	}
}

// PUT /conversations/:id/mentor  {"mentor": "music"}
func SwitchMentorHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		var req struct {
			Mentor string `json:"mentor"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Mentor == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "missing mentor"}})
			return
		}
		if err := sess.SetMentor(req.Mentor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		deps.Sessions.Save(c.Request.Context(), sess)
		c.JSON(http.StatusOK, viewOf(sess, false))
	}
}

// POST /conversations/:id/summary
func SummaryHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		text, err := deps.Engine.Summarize(c.Request.Context(), sess)
		if err != nil {
			if errors.Is(err, dialogue.ErrInsufficientHistory) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"warning": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		deps.Sessions.Save(c.Request.Context(), sess)
		c.JSON(http.StatusOK, gin.H{"summary": text})
	}
}

// POST /conversations/:id/progress
func ProgressHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		text, err := deps.Engine.AnalyzeProgress(c.Request.Context(), sess)
		if err != nil {
			if errors.Is(err, dialogue.ErrNoSummary) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"warning": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		deps.Sessions.Save(c.Request.Context(), sess)
		c.JSON(http.StatusOK, gin.H{"analysis": text})
	}
}

// GET /conversations/:id/export
func ExportConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=conversation-%s.json", sess.ID))
		c.JSON(http.StatusOK, sess.Export())
	}
}

// POST /conversations/import  (body: saved conversation document)
func ImportConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}
		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "unreadable body"}})
			return
		}
		doc, err := session.ParseDocument(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		sess := deps.Sessions.Create(c.Request.Context(), userID, doc.Mentor)
		if err := sess.Load(doc); err != nil {
			deps.Sessions.Delete(c.Request.Context(), userID, sess.ID)
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
			return
		}
		deps.Sessions.Save(c.Request.Context(), sess)
		c.JSON(http.StatusCreated, viewOf(sess, true))
	}
}

// POST /conversations/:id/reset
func ResetConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		sess.Reset()
		deps.Sessions.Save(c.Request.Context(), sess)
		c.JSON(http.StatusOK, viewOf(sess, false))
	}
}

// POST /conversations/:id/archive
func ArchiveConversationHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := lookupSession(c, deps)
		if !ok {
			return
		}
		conv, err := deps.Archive.Archive(sess)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "failed to archive conversation"}})
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}

// GET /archives
func ListArchivesHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}
		convs, err := deps.Archive.List(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "failed to list archives"}})
			return
		}
		c.JSON(http.StatusOK, convs)
	}
}

// GET /archives/:id
func GetArchiveHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "unauthorized"}})
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid archive id"}})
			return
		}
		conv, err := deps.Archive.Get(userID, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "archive not found"}})
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}
