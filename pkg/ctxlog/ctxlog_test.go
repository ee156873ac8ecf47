// Copyright The Shipwright Contributors
//
// SPDX-License-Identifier: Apache-2.0

package ctxlog_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/shipwright-io/nuget-publish/pkg/ctxlog"
)

var _ = Describe("Context logging", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("should write info lines with the logger name", func() {
		log, err := ctxlog.NewLogger("nuget-publish", ctxlog.LevelInfo, buf)
		Expect(err).ToNot(HaveOccurred())

		ctx := ctxlog.WithLogger(context.Background(), log)
		ctxlog.Info(ctx, "packing project", "project", "src/Lib/Lib.csproj")

		Expect(buf.String()).To(ContainSubstring("nuget-publish"))
		Expect(buf.String()).To(ContainSubstring("packing project"))
		Expect(buf.String()).To(ContainSubstring("src/Lib/Lib.csproj"))
	})

	It("should suppress debug lines on info level", func() {
		log, err := ctxlog.NewLogger("nuget-publish", ctxlog.LevelInfo, buf)
		Expect(err).ToNot(HaveOccurred())

		ctxlog.Debug(ctxlog.WithLogger(context.Background(), log), "hidden")
		Expect(buf.String()).To(BeEmpty())
	})

	It("should write debug lines on debug level", func() {
		log, err := ctxlog.NewLogger("nuget-publish", ctxlog.LevelDebug, buf)
		Expect(err).ToNot(HaveOccurred())

		ctxlog.Debug(ctxlog.WithLogger(context.Background(), log), "visible")
		Expect(buf.String()).To(ContainSubstring("visible"))
	})

	It("should write errors", func() {
		log, err := ctxlog.NewLogger("nuget-publish", ctxlog.LevelInfo, buf)
		Expect(err).ToNot(HaveOccurred())

		ctxlog.Error(ctxlog.WithLogger(context.Background(), log), errors.New("boom"), "push failed")
		Expect(buf.String()).To(ContainSubstring("push failed"))
		Expect(buf.String()).To(ContainSubstring("boom"))
	})

	It("should reject unknown levels", func() {
		_, err := ctxlog.NewLogger("nuget-publish", "verbose", buf)
		Expect(err).To(HaveOccurred())
	})

	It("should add names for child contexts", func() {
		log, err := ctxlog.NewLogger("nuget-publish", ctxlog.LevelInfo, buf)
		Expect(err).ToNot(HaveOccurred())

		ctx := ctxlog.NewContext(ctxlog.WithLogger(context.Background(), log), "push")
		ctxlog.Info(ctx, "hello")
		Expect(buf.String()).To(ContainSubstring("nuget-publish.push"))
	})

	It("should fall back to a discarding logger", func() {
		Expect(func() { ctxlog.Info(context.Background(), "nobody listens") }).ToNot(Panic())
	})
})
