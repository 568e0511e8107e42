// contribsync 学生贡献数据同步服务
//
// 使用方式:
//
//	contribsync serve                     # 启动HTTP服务与同步任务管理器
//	contribsync sync run --batch-size 10  # 一次性同步全部学生后退出
//	contribsync students import data.json # 导入学生名单
package main

func main() {
	Execute()
}
