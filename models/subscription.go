package models

type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierBasic   SubscriptionTier = "basic"
	TierPremium SubscriptionTier = "premium"
	TierPro     SubscriptionTier = "pro"
)

// Hạn mức theo gói đăng ký
type TierConfig struct {
	SessionsPerDay int // số phiên truyện được tạo trong 24h
	MaxApiCalls    int // số lượt gọi AI tối đa cho một phiên
}

var tierConfigs = map[SubscriptionTier]TierConfig{
	TierFree:    {SessionsPerDay: 3, MaxApiCalls: 7},
	TierBasic:   {SessionsPerDay: 10, MaxApiCalls: 7},
	TierPremium: {SessionsPerDay: 25, MaxApiCalls: 10},
	TierPro:     {SessionsPerDay: 100, MaxApiCalls: 10},
}

// ConfigForTier trả về hạn mức của gói; gói lạ coi như free
func ConfigForTier(tier SubscriptionTier) TierConfig {
	if cfg, ok := tierConfigs[tier]; ok {
		return cfg
	}
	return tierConfigs[TierFree]
}
