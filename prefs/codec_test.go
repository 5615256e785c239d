package prefs_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ddevcap/fontprefs/prefs"
)

var _ = Describe("Codec", func() {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	Describe("Encode", func() {
		It("serializes name, value, path and expiry", func() {
			Expect(prefs.Encode("fontcolor", "#ff0000", 30, now)).To(Equal(
				"fontcolor=%23ff0000; path=/; expires=Sun, 31 Mar 2024 12:00:00 GMT"))
		})

		It("computes expiry as ttlDays whole days after now", func() {
			r := prefs.NewRecord("fontsize", "18", 7, now)
			Expect(r.Expires).To(Equal(now.Add(7 * 24 * time.Hour)))
			Expect(r.Path).To(Equal("/"))
		})

		It("formats the expiry in GMT regardless of the input zone", func() {
			loc := time.FixedZone("UTC+2", 2*60*60)
			text := prefs.Encode("k", "v", 1, now.In(loc))
			Expect(text).To(HaveSuffix("expires=Sat, 02 Mar 2024 12:00:00 GMT"))
		})

		It("escapes separators in both name and value", func() {
			text := prefs.Encode("a b;c", "x=y; z", 1, now)
			Expect(text).To(HavePrefix("a%20b%3Bc=x%3Dy%3B%20z; path=/"))
		})
	})

	Describe("EncodeComponent", func() {
		DescribeTable("matches encodeURIComponent",
			func(in, out string) {
				Expect(prefs.EncodeComponent(in)).To(Equal(out))
			},
			Entry("plain", "fontsize", "fontsize"),
			Entry("hash", "#ff0000", "%23ff0000"),
			Entry("space", "a b", "a%20b"),
			Entry("plus", "a+b", "a%2Bb"),
			Entry("kept marks", "-_.!~*'()", "-_.!~*'()"),
			Entry("separators", ";=,", "%3B%3D%2C"),
			Entry("percent", "100%", "100%25"),
			Entry("utf-8", "é", "%C3%A9"),
		)
	})

	Describe("Decode", func() {
		It("returns not found for an empty header", func() {
			_, ok := prefs.Decode("", "fontsize")
			Expect(ok).To(BeFalse())
		})

		It("returns not found when no segment matches", func() {
			_, ok := prefs.Decode("theme=dark; lang=en", "fontsize")
			Expect(ok).To(BeFalse())
		})

		It("trims whitespace around segments", func() {
			v, ok := prefs.Decode("theme=dark;   fontsize=18  ", "fontsize")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("18"))
		})

		It("does not match a cookie whose name merely starts with the key", func() {
			v, ok := prefs.Decode("fontsizex=1; fontsize=2", "fontsize")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("2"))
		})

		It("returns the first match when a name repeats", func() {
			v, ok := prefs.Decode("fontsize=1; fontsize=2", "fontsize")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("1"))
		})

		It("returns the raw substring for a malformed escape", func() {
			v, ok := prefs.Decode("fontcolor=%zz00", "fontcolor")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("%zz00"))
		})

		It("matches names that need encoding", func() {
			v, ok := prefs.Decode("my%20key=v%3Bw", "my key")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("v;w"))
		})

		It("decodes an empty value", func() {
			v, ok := prefs.Decode("fontsize=", "fontsize")
			Expect(ok).To(BeTrue())
			Expect(v).To(BeEmpty())
		})
	})

	DescribeTable("round-trips values containing separators",
		func(value string) {
			v, ok := prefs.Decode(prefs.Encode("k", value, 30, now), "k")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(value))
		},
		Entry("semicolon", "a;b"),
		Entry("equals", "a=b"),
		Entry("space", "a b"),
		Entry("tab and newline", "a\tb\nc"),
		Entry("mixed", " ;= x = ; "),
		Entry("percent literal", "%20"),
		Entry("hex color", "#ff0000"),
	)
})
