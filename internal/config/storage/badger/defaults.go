package badger

// BadgerDB存储默认配置值
const (
	// defaultPath 默认数据目录
	defaultPath = "./data/badger"

	defaultInMemory = false

	// defaultSyncWrites 默认关闭同步写入
	// 原因：贡献数可随时从外部重新同步，丢失最后几次写入的代价很低
	defaultSyncWrites = false

	// defaultMemTableSize 默认内存表大小为16MB
	// 原因：学生记录很小，单表数据量远低于区块类数据
	defaultMemTableSize = 16 << 20
)
