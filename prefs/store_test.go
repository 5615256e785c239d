package prefs_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/fontprefs/prefs"
)

// recordingJar is a CookieJar that keeps the raw header and every write.
type recordingJar struct {
	header string
	writes []prefs.Record
}

func (j *recordingJar) Header() string { return j.header }

func (j *recordingJar) SetCookie(r prefs.Record) {
	j.writes = append(j.writes, r)
	j.header = r.Name + "=" + r.Value + "; " + j.header
}

// failingControls reports an error other than ErrMissingControl.
type failingControls struct{}

func (failingControls) SetValue(string, string) error { return errors.New("boom") }

var defaults = map[string]string{"--fontsize": "16px", "--fontcolor": "#000000"}

var _ = Describe("Store", func() {
	var (
		jar   *prefs.MemoryJar
		sheet *prefs.StyleSheet
		store *prefs.Store
	)

	BeforeEach(func() {
		jar = prefs.NewMemoryJar()
		sheet = prefs.NewStyleSheet(defaults)
		store = prefs.NewStore(jar, sheet, 30)
	})

	Describe("LoadAndApply", func() {
		It("leaves defaults untouched when nothing is stored", func() {
			store.LoadAndApply()
			Expect(sheet.Properties()).To(Equal(defaults))
		})

		It("applies stored values over the defaults", func() {
			jar.SetCookie(prefs.NewRecord("fontcolor", "#ff0000", 30, time.Now()))
			store.LoadAndApply()

			Expect(sheet.Properties()).To(Equal(map[string]string{
				"--fontsize":  "16px",
				"--fontcolor": "#ff0000",
			}))
		})

		It("treats empty cookie values as not stored", func() {
			empty := prefs.NewMemoryJarFromHeader("fontsize=; fontcolor=")
			store = prefs.NewStore(empty, sheet, 30)
			store.LoadAndApply()

			Expect(sheet.Properties()).To(Equal(defaults))
		})

		It("treats a bare unit as not stored", func() {
			store = prefs.NewStore(prefs.NewMemoryJarFromHeader("fontsize=px"), sheet, 30)
			store.LoadAndApply()

			v, _ := sheet.Property("--fontsize")
			Expect(v).To(Equal("16px"))
		})

		It("is safe before controls exist and fills them once bound", func() {
			jar.SetCookie(prefs.NewRecord("fontsize", "22", 30, time.Now()))
			store.LoadAndApply()

			form := prefs.NewForm(map[string]string{"fontsize": "16", "fontcolor": "#000000"})
			store.BindControls(form)
			store.LoadAndApply()

			Expect(form.Value("fontsize")).To(Equal("22"))
			Expect(form.Value("fontcolor")).To(Equal("#000000"))
			v, _ := sheet.Property("--fontsize")
			Expect(v).To(Equal("22px"))
		})

		It("skips controls that are not present", func() {
			jar.SetCookie(prefs.NewRecord("fontsize", "22", 30, time.Now()))
			jar.SetCookie(prefs.NewRecord("fontcolor", "#00ff00", 30, time.Now()))

			form := prefs.NewForm(map[string]string{"fontcolor": ""})
			store.BindControls(form)
			store.LoadAndApply()

			Expect(form.Value("fontcolor")).To(Equal("#00ff00"))
			Expect(form.Value("fontsize")).To(BeEmpty())
			v, _ := sheet.Property("--fontsize")
			Expect(v).To(Equal("22px"))
		})

		It("still applies to the binding when a control fails", func() {
			jar.SetCookie(prefs.NewRecord("fontcolor", "#00ff00", 30, time.Now()))
			store.BindControls(failingControls{})
			store.LoadAndApply()

			v, _ := sheet.Property("--fontcolor")
			Expect(v).To(Equal("#00ff00"))
		})

		It("normalizes legacy cookies that carry the unit", func() {
			legacy := prefs.NewMemoryJarFromHeader("fontsize=18px")
			s := prefs.NewStore(legacy, sheet, 30)
			s.LoadAndApply()

			v, _ := sheet.Property("--fontsize")
			Expect(v).To(Equal("18px"))
		})

		It("is idempotent for identical stored state", func() {
			jar.SetCookie(prefs.NewRecord("fontsize", "20", 30, time.Now()))
			store.LoadAndApply()
			first := sheet.CSS()
			store.LoadAndApply()
			Expect(sheet.CSS()).To(Equal(first))
		})
	})

	Describe("Save", func() {
		It("persists and applies in one call", func() {
			Expect(store.Save("fontcolor", "#ff0000", 30)).To(Succeed())

			v, ok := prefs.Decode(jar.Header(), "fontcolor")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("#ff0000"))
			css, _ := sheet.Property("--fontcolor")
			Expect(css).To(Equal("#ff0000"))
		})

		It("yields a single px unit after a reload", func() {
			Expect(store.Save("fontsize", "18", 30)).To(Succeed())

			reloaded := prefs.NewStyleSheet(defaults)
			prefs.NewStore(jar, reloaded, 30).LoadAndApply()

			v, _ := reloaded.Property("--fontsize")
			Expect(v).To(Equal("18px"))
		})

		It("stores the size without its unit", func() {
			Expect(store.Save("fontsize", "18px", 30)).To(Succeed())

			v, _ := prefs.Decode(jar.Header(), "fontsize")
			Expect(v).To(Equal("18"))
			css, _ := sheet.Property("--fontsize")
			Expect(css).To(Equal("18px"))
		})

		It("keeps the last write", func() {
			Expect(store.Save("fontcolor", "#111111", 30)).To(Succeed())
			Expect(store.Save("fontcolor", "#222222", 30)).To(Succeed())

			v, _ := prefs.Decode(jar.Header(), "fontcolor")
			Expect(v).To(Equal("#222222"))
		})

		It("rejects unknown keys without touching the jar", func() {
			err := store.Save("theme", "dark", 30)
			Expect(errors.Is(err, prefs.ErrUnknownPreference)).To(BeTrue())
			Expect(jar.Len()).To(BeZero())
		})

		It("uses the clock and TTL for the expiry", func() {
			rec := &recordingJar{}
			now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
			s := prefs.NewStore(rec, sheet, 7)
			s.SetClock(func() time.Time { return now })

			Expect(s.Save("fontsize", "12", 0)).To(Succeed())
			Expect(s.Save("fontsize", "13", 30)).To(Succeed())

			Expect(rec.writes).To(HaveLen(2))
			Expect(rec.writes[0].Expires).To(Equal(now.Add(7 * 24 * time.Hour)))
			Expect(rec.writes[1].Expires).To(Equal(now.Add(30 * 24 * time.Hour)))
			Expect(rec.writes[1].Path).To(Equal("/"))
		})

		It("updates a bound control", func() {
			form := prefs.NewForm(map[string]string{"fontsize": "16"})
			store.BindControls(form)
			Expect(store.Save("fontsize", "24", 30)).To(Succeed())
			Expect(form.Value("fontsize")).To(Equal("24"))
		})
	})

	Describe("Get", func() {
		It("returns ErrMissingPreference when nothing is stored", func() {
			_, err := store.Get("fontsize")
			Expect(errors.Is(err, prefs.ErrMissingPreference)).To(BeTrue())
		})

		It("returns ErrUnknownPreference for unknown keys", func() {
			_, err := store.Get("theme")
			Expect(errors.Is(err, prefs.ErrUnknownPreference)).To(BeTrue())
		})

		It("returns ErrMissingPreference for an empty cookie", func() {
			store = prefs.NewStore(prefs.NewMemoryJarFromHeader("fontcolor="), sheet, 30)
			_, err := store.Get("fontcolor")
			Expect(errors.Is(err, prefs.ErrMissingPreference)).To(BeTrue())
		})

		It("returns the stored value", func() {
			Expect(store.Save("fontsize", "14", 30)).To(Succeed())
			Expect(store.Get("fontsize")).To(Equal("14"))
		})
	})

	Describe("All", func() {
		It("lists stored preferences in definition order", func() {
			Expect(store.Save("fontcolor", "#abcdef", 30)).To(Succeed())
			Expect(store.Save("fontsize", "15", 30)).To(Succeed())

			Expect(store.All()).To(Equal([]prefs.Preference{
				{Key: "fontsize", Value: "15"},
				{Key: "fontcolor", Value: "#abcdef"},
			}))
		})

		It("omits empty cookies", func() {
			store = prefs.NewStore(prefs.NewMemoryJarFromHeader("fontsize=; fontcolor=%23abcdef"), sheet, 30)
			Expect(store.All()).To(Equal([]prefs.Preference{{Key: "fontcolor", Value: "#abcdef"}}))
		})
	})

	Describe("event handlers", func() {
		It("OnSubmit saves every known key present", func() {
			Expect(store.OnSubmit(map[string]string{
				"fontsize":  "20",
				"fontcolor": "#ff0000",
				"other":     "ignored",
			})).To(Succeed())

			Expect(store.Get("fontsize")).To(Equal("20"))
			Expect(store.Get("fontcolor")).To(Equal("#ff0000"))
			Expect(jar.Len()).To(Equal(2))
		})

		It("OnControlChange saves a single value", func() {
			Expect(store.OnControlChange("fontcolor", "#00ff00")).To(Succeed())
			Expect(store.Get("fontcolor")).To(Equal("#00ff00"))
		})

		It("OnLoad applies stored values", func() {
			jar.SetCookie(prefs.NewRecord("fontsize", "30", 30, time.Now()))
			store.OnLoad()
			v, _ := sheet.Property("--fontsize")
			Expect(v).To(Equal("30px"))
		})
	})

	It("defaults non-positive TTLs", func() {
		Expect(prefs.NewStore(jar, sheet, 0).TTLDays()).To(Equal(prefs.DefaultTTLDays))
	})
})
