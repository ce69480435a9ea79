package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquirePayoutLock serializes payout creation per pitch across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the payout transaction.
func AcquirePayoutLock(tx *gorm.DB, pitchId int) error {
	lockName := fmt.Sprintf("payout:pitch:%d", pitchId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire payout lock for pitch_id=%d", pitchId)
	}
	return nil
}

func ReleasePayoutLock(tx *gorm.DB, pitchId int) {
	lockName := fmt.Sprintf("payout:pitch:%d", pitchId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
