package sqlstore

import (
	"time"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
)

var baseTime = time.Date(2025, 5, 17, 1, 15, 2, 0, time.UTC)

func testStation() domain.Station {
	return domain.NewStation("KWBC", domain.BuiltinDefaults().Stations["KWBC"], baseTime)
}

func testProduct() domain.Product {
	return domain.NewProduct("STPTPTCN", domain.BuiltinDefaults().Products["STPTPTCN"], baseTime)
}

func testBulletin() domain.BulletinFile {
	m, err := domain.ParseFilename("A_SPCMESO1234KWBC170115_C_KWIN_20250517011502_321540-2-STPTPTCN.TXT")
	if err != nil {
		panic(err)
	}
	return domain.NewBulletinFile(m, "/data/A_SPCMESO1234KWBC170115_C_KWIN_20250517011502_321540-2-STPTPTCN.TXT", 42, baseTime)
}
