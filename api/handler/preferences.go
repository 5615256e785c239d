package handler

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"

	"github.com/ddevcap/fontprefs/config"
	"github.com/ddevcap/fontprefs/prefs"
	"github.com/ddevcap/fontprefs/static"
)

const (
	// IndexTemplate is the name the page template is registered under.
	IndexTemplate = "index.html"
	// SavedNotice is shown after a successful form submit.
	SavedNotice = "Preferences saved successfully! Try reloading the page."

	defaultCSSCacheTTL = 30 * time.Second
)

// Templates parses the embedded page template. Register it on the engine with
// SetHTMLTemplate before serving PreferencesHandler.Page.
func Templates() *template.Template {
	return template.Must(template.New(IndexTemplate).Parse(static.IndexHTML))
}

// PreferencesHandler serves the preference page, the preference stylesheet
// and the JSON API. Every request gets its own prefs.Store over a jar bound
// to that request's cookies.
type PreferencesHandler struct {
	cfg      config.Config
	defaults map[string]string
	cssCache *ttlcache.Cache[string, string]
}

func NewPreferencesHandler(cfg config.Config) *PreferencesHandler {
	return &PreferencesHandler{
		cfg:      cfg,
		defaults: cfg.Defaults(),
		cssCache: newCSSCache(cfg.CSSCacheTTL),
	}
}

// Stop ends the stylesheet cache eviction loop.
func (h *PreferencesHandler) Stop() {
	h.cssCache.Stop()
}

// newCSSCache creates a TTL cache of rendered stylesheets keyed by the
// stored preference set. Many requests share the same handful of
// preference combinations, so rendering once per TTL is enough.
func newCSSCache(ttl time.Duration) *ttlcache.Cache[string, string] {
	if ttl <= 0 {
		ttl = defaultCSSCacheTTL
	}
	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start() // starts the automatic expired-item eviction loop
	return cache
}

// newStore builds the store for a request without applying anything yet.
func (h *PreferencesHandler) newStore(c *gin.Context) (*prefs.Store, *prefs.StyleSheet) {
	sheet := prefs.NewStyleSheet(prefs.DefaultProperties(h.defaults))
	return prefs.NewStore(newRequestJar(c), sheet, h.cfg.CookieTTLDays), sheet
}

// load runs both apply passes: one before the form controls exist (the
// stylesheet) and one after they are bound (the form values).
func (h *PreferencesHandler) load(c *gin.Context) (*prefs.Store, *prefs.StyleSheet, *prefs.Form) {
	store, sheet := h.newStore(c)
	store.OnLoad()

	form := prefs.NewForm(h.defaults)
	store.BindControls(form)
	store.OnLoad()
	return store, sheet, form
}

type pageData struct {
	CSS       template.CSS
	FontSize  string
	FontColor string
	Notice    string
	Error     string
}

func (h *PreferencesHandler) render(c *gin.Context, status int, sheet *prefs.StyleSheet, form *prefs.Form, notice, errMsg string) {
	c.HTML(status, IndexTemplate, pageData{
		CSS:       template.CSS(sheet.CSS()),
		FontSize:  form.Value(prefs.KeyFontSize),
		FontColor: form.Value(prefs.KeyFontColor),
		Notice:    notice,
		Error:     errMsg,
	})
}

// Page handles GET /: the preference form, styled with the saved values.
func (h *PreferencesHandler) Page(c *gin.Context) {
	_, sheet, form := h.load(c)
	h.render(c, http.StatusOK, sheet, form, "", "")
}

// preferenceForm carries a form submit. The rules match the native number
// and color inputs on the page.
type preferenceForm struct {
	FontSize  string `form:"fontsize" binding:"required,numeric"`
	FontColor string `form:"fontcolor" binding:"required,hexcolor"`
}

// Submit handles POST /preferences. It saves both preferences, applies them
// to the rendered page and shows a confirmation notice. Invalid input saves
// nothing and re-renders the stored state with a 400.
func (h *PreferencesHandler) Submit(c *gin.Context) {
	store, sheet, form := h.load(c)

	var req preferenceForm
	if err := c.ShouldBind(&req); err != nil {
		h.render(c, http.StatusBadRequest, sheet, form, "", "Invalid preferences: "+err.Error())
		return
	}

	if err := store.OnSubmit(map[string]string{
		prefs.KeyFontSize:  req.FontSize,
		prefs.KeyFontColor: req.FontColor,
	}); err != nil {
		slog.Error("failed to save preferences", "request_id", requestID(c), "error", err)
		h.render(c, http.StatusInternalServerError, sheet, form, "", "Could not save preferences.")
		return
	}

	slog.Info("preferences saved",
		"request_id", requestID(c),
		"fontsize", form.Value(prefs.KeyFontSize),
		"fontcolor", form.Value(prefs.KeyFontColor),
	)
	h.render(c, http.StatusOK, sheet, form, SavedNotice, "")
}

// Stylesheet handles GET /preferences.css: the :root custom properties for
// the caller's cookies, for pages that want the styling before any script
// runs.
func (h *PreferencesHandler) Stylesheet(c *gin.Context) {
	store, sheet := h.newStore(c)
	key := cacheKey(store.All())

	var css string
	if item := h.cssCache.Get(key); item != nil {
		css = item.Value()
	} else {
		store.LoadAndApply()
		css = sheet.CSS()
		h.cssCache.Set(key, css, ttlcache.DefaultTTL)
	}

	c.Header("Vary", "Cookie")
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(css))
}

func cacheKey(stored []prefs.Preference) string {
	parts := make([]string, 0, len(stored))
	for _, p := range stored {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, "\x00")
}

// Script handles GET /app.js.
func (h *PreferencesHandler) Script(c *gin.Context) {
	c.Data(http.StatusOK, "text/javascript; charset=utf-8", []byte(static.AppJS))
}

// Get handles GET /api/preferences. Returns the stored values and the custom
// properties they render to (defaults included).
func (h *PreferencesHandler) Get(c *gin.Context) {
	store, sheet, _ := h.load(c)

	values := make(map[string]string, len(prefs.Definitions))
	for _, p := range store.All() {
		values[p.Key] = p.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"preferences": values,
		"properties":  sheet.Properties(),
	})
}

type updateRequest struct {
	Value string `json:"value" binding:"required"`
}

// Update handles PUT /api/preferences/:key when a single control changes.
// The value is saved and the resulting custom properties are returned so the
// caller can apply them without a reload.
func (h *PreferencesHandler) Update(c *gin.Context) {
	key := c.Param("key")
	d, ok := prefs.Lookup(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown preference"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	value := d.Normalize(req.Value)
	if err := validateValue(d.Key, value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value for " + d.Key})
		return
	}

	store, sheet, _ := h.load(c)
	if err := store.OnControlChange(d.Key, value); err != nil {
		if errors.Is(err, prefs.ErrUnknownPreference) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown preference"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save preference"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":        d.Key,
		"value":      value,
		"properties": sheet.Properties(),
	})
}
