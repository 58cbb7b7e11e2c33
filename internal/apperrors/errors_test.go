package apperrors

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	Context("basic error creation", func() {
		It("should create error with correct properties", func() {
			err := New(ErrValidation, "test message")

			Expect(err.Type).To(Equal(ErrValidation))
			Expect(err.Message).To(Equal("test message"))
			Expect(err.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(err.Details).To(BeEmpty())
			Expect(err.Cause).To(BeNil())
		})

		It("should implement error interface correctly", func() {
			err := New(ErrValidation, "test message")

			Expect(err.Error()).To(Equal("validation: test message"))
		})

		It("should include details in error string when present", func() {
			err := New(ErrValidation, "test message").WithDetails("extra info")

			Expect(err.Error()).To(Equal("validation: test message (extra info)"))
		})
	})

	Context("error wrapping", func() {
		It("should wrap underlying error", func() {
			originalErr := errors.New("original error")
			wrappedErr := Wrap(originalErr, ErrDockerError, "operation failed")

			Expect(wrappedErr.Type).To(Equal(ErrDockerError))
			Expect(wrappedErr.Message).To(Equal("operation failed"))
			Expect(wrappedErr.Cause).To(Equal(originalErr))
			Expect(wrappedErr.Unwrap()).To(Equal(originalErr))
		})

		It("should format wrapped error with arguments", func() {
			originalErr := errors.New("connection refused")
			wrappedErr := Wrapf(originalErr, ErrLLMError, "failed to call %s:%d", "localhost", 5432)

			Expect(wrappedErr.Message).To(Equal("failed to call localhost:5432"))
			Expect(wrappedErr.Cause).To(Equal(originalErr))
		})
	})

	Context("status mapping", func() {
		It("maps security errors to 400/401/500", func() {
			Expect(New(ErrTooManySecrets, "x").StatusCode).To(Equal(http.StatusBadRequest))
			Expect(New(ErrUnauthorizedRepo, "x").StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(New(ErrSanitizationFail, "x").StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("maps data errors to 404", func() {
			Expect(New(ErrIncidentNotFound, "x").StatusCode).To(Equal(http.StatusNotFound))
			Expect(New(ErrPatchNotFound, "x").StatusCode).To(Equal(http.StatusNotFound))
		})

		It("maps circuit breaker to 503", func() {
			Expect(New(ErrCircuitBreakerOpen, "x").StatusCode).To(Equal(http.StatusServiceUnavailable))
		})

		It("defaults unknown types to 500", func() {
			Expect(New(ErrorType("made_up"), "x").StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Context("As", func() {
		It("matches on type", func() {
			err := New(ErrLowConfidence, "too low")
			Expect(As(err, ErrLowConfidence)).To(BeTrue())
			Expect(As(err, ErrTestFailed)).To(BeFalse())
			Expect(As(errors.New("plain"), ErrLowConfidence)).To(BeFalse())
		})
	})

	Context("ToEnvelope", func() {
		It("carries details through", func() {
			err := New(ErrInvalidPatch, "bad diff").WithDetails("zero hunks")
			env := err.ToEnvelope()
			Expect(env.Error).To(Equal(ErrInvalidPatch))
			Expect(env.Message).To(Equal("bad diff"))
			Expect(env.Details["details"]).To(Equal("zero hunks"))
		})
	})
})
