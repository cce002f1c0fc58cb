package webhook

import (
	"net/http"

	"github.com/human-glitch/github-releaser/pkg/signature"
	"github.com/qiniu/x/log"
)

// validateSignature 校验 webhook 签名，未配置 secret 时跳过
func (h *Handler) validateSignature(r *http.Request, body []byte) error {
	secret := h.config.Server.WebhookSecret
	if secret == "" {
		return nil
	}

	if sig := r.Header.Get("X-Hub-Signature-256"); sig != "" {
		return signature.ValidateGitHubSignature(sig, body, secret)
	}

	// 旧版 SHA-1 签名头
	if sig := r.Header.Get("X-Hub-Signature"); sig != "" {
		log.Debugf("Validating legacy SHA-1 webhook signature")
		return signature.ValidateGitHubSignatureSHA1(sig, body, secret)
	}

	return signature.ErrMissingSignature
}
